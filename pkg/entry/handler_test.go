package entry

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wisbric/daybook/internal/audit"
)

func testHandler() *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, audit.NewWriter(nil, logger))
}

func TestCreateEntryValidation(t *testing.T) {
	h := testHandler()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"empty body", ``, http.StatusBadRequest},
		{"missing title", `{"body":"worked on the quarterly report"}`, http.StatusUnprocessableEntity},
		{"bad entry date", `{"title":"standup","entry_date":"31/12/2025"}`, http.StatusUnprocessableEntity},
		{"title too long", `{"title":"` + strings.Repeat("x", 301) + `"}`, http.StatusUnprocessableEntity},
		{"unknown field", `{"title":"standup","tenant_id":"sneaky"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.Routes().ServeHTTP(rr, r)
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
		})
	}
}

func TestEntryIDParsing(t *testing.T) {
	h := testHandler()

	r := httptest.NewRequest("GET", "/not-a-uuid", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, r)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
