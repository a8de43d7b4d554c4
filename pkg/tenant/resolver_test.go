package tenant

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/wisbric/daybook/internal/auth"
)

func TestDefaultChainPriority(t *testing.T) {
	tokenTenant := uuid.New()
	sessionTenant := uuid.New()
	userTenant := uuid.New()

	tests := []struct {
		name       string
		identity   *auth.Identity
		wantID     uuid.UUID
		wantSource Source
	}{
		{
			name: "token wins over everything",
			identity: &auth.Identity{
				TokenTenantID:   tokenTenant,
				SessionTenantID: sessionTenant,
				UserTenantID:    userTenant,
			},
			wantID:     tokenTenant,
			wantSource: SourceToken,
		},
		{
			name: "session wins over user record",
			identity: &auth.Identity{
				SessionTenantID: sessionTenant,
				UserTenantID:    userTenant,
			},
			wantID:     sessionTenant,
			wantSource: SourceSession,
		},
		{
			name:       "user record as last resort",
			identity:   &auth.Identity{UserTenantID: userTenant},
			wantID:     userTenant,
			wantSource: SourceUser,
		},
		{
			name:       "authenticated but no tenant anywhere",
			identity:   &auth.Identity{Subject: "someone"},
			wantID:     uuid.Nil,
			wantSource: SourceNone,
		},
		{
			name:       "no identity at all",
			identity:   nil,
			wantID:     uuid.Nil,
			wantSource: SourceNone,
		},
	}

	chain := DefaultChain()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/entries", nil)
			if tt.identity != nil {
				r = r.WithContext(auth.NewContext(r.Context(), tt.identity))
			}

			ri := chain.Resolve(r)
			if ri.TenantID != tt.wantID {
				t.Errorf("TenantID = %v, want %v", ri.TenantID, tt.wantID)
			}
			if ri.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", ri.Source, tt.wantSource)
			}
		})
	}
}

func TestResolvedIdentityFound(t *testing.T) {
	if (ResolvedIdentity{Source: SourceNone}).Found() {
		t.Error("none resolution reported Found")
	}
	if (ResolvedIdentity{TenantID: uuid.Nil, Source: SourceToken}).Found() {
		t.Error("nil tenant id reported Found")
	}
	if !(ResolvedIdentity{TenantID: uuid.New(), Source: SourceSession}).Found() {
		t.Error("valid resolution reported not Found")
	}
}
