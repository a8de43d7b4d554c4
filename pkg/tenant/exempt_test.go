package tenant

import "testing"

func TestExemptListMatch(t *testing.T) {
	l := NewExemptList("/custom-probe", "/webhooks/")

	tests := []struct {
		path string
		want bool
	}{
		{"/healthz", true},
		{"/readyz", true},
		{"/metrics", true},
		{"/auth/login", true},
		{"/static/app.js", true},
		{"/console", true},
		{"/console/tenants", true},
		{"/custom-probe", true},
		{"/webhooks/stripe", true},
		{"/api/v1/entries", false},
		{"/api/v1/platform/tenants", false},
		{"/healthz2", false},
		{"/", false},
	}

	for _, tt := range tests {
		if got := l.Match(tt.path); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
