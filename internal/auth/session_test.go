package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSessionManagerRoundTrip(t *testing.T) {
	sm, err := NewSessionManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}

	in := SessionClaims{
		Subject:  "Jo Doe",
		Email:    "jo@acme.test",
		Role:     RoleAdmin,
		TenantID: uuid.New().String(),
		UserID:   uuid.New().String(),
	}

	token, err := sm.IssueToken(in)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	got, err := sm.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if got.Email != in.Email {
		t.Errorf("Email = %q, want %q", got.Email, in.Email)
	}
	if got.Role != in.Role {
		t.Errorf("Role = %q, want %q", got.Role, in.Role)
	}
	if got.TenantID != in.TenantID {
		t.Errorf("TenantID = %q, want %q", got.TenantID, in.TenantID)
	}
	if got.UserID != in.UserID {
		t.Errorf("UserID = %q, want %q", got.UserID, in.UserID)
	}
}

func TestSessionManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewSessionManager("tooshort", time.Hour); err == nil {
		t.Error("NewSessionManager() with short secret: error = nil, want non-nil")
	}
}

func TestValidateTokenFailures(t *testing.T) {
	sm, err := NewSessionManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	token, err := sm.IssueToken(SessionClaims{Subject: "u", TenantID: uuid.New().String()})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		tampered := parts[0] + "." + parts[1] + "x." + parts[2]
		if _, err := sm.ValidateToken(tampered); err == nil {
			t.Error("ValidateToken() on tampered token: error = nil, want non-nil")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewSessionManager("ffffffffffffffffffffffffffffffff", time.Hour)
		if err != nil {
			t.Fatalf("NewSessionManager() error = %v", err)
		}
		if _, err := other.ValidateToken(token); err == nil {
			t.Error("ValidateToken() with wrong key: error = nil, want non-nil")
		}
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := NewSessionManager(testSecret, -time.Hour)
		if err != nil {
			t.Fatalf("NewSessionManager() error = %v", err)
		}
		tok, err := expired.IssueToken(SessionClaims{Subject: "u"})
		if err != nil {
			t.Fatalf("IssueToken() error = %v", err)
		}
		if _, err := expired.ValidateToken(tok); err == nil {
			t.Error("ValidateToken() on expired token: error = nil, want non-nil")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := sm.ValidateToken("not-a-jwt"); err == nil {
			t.Error("ValidateToken() on garbage: error = nil, want non-nil")
		}
	})
}

func TestGenerateDevSecret(t *testing.T) {
	s1 := GenerateDevSecret()
	s2 := GenerateDevSecret()
	if len(s1) != 64 {
		t.Errorf("secret length = %d, want 64", len(s1))
	}
	if s1 == s2 {
		t.Error("two generated secrets are identical")
	}
}
