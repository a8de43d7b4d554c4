package tenant

import "strings"

// ExemptList is the fixed allow-list of paths that legitimately have no
// tenant: authentication, probes, metrics, static assets, and the platform
// console root. Requests matching it skip resolution and validation
// entirely, and never touch the security channel.
type ExemptList struct {
	exact    map[string]struct{}
	prefixes []string
}

// defaultExemptExact and defaultExemptPrefixes are the built-in allow-list.
var (
	defaultExemptExact    = []string{"/healthz", "/readyz", "/metrics"}
	defaultExemptPrefixes = []string{"/auth/", "/api/docs", "/static/", "/media/", "/console"}
)

// NewExemptList builds the allow-list from the built-in entries plus any
// deployment-specific extras. Extras ending in "/" match as prefixes,
// others as exact paths.
func NewExemptList(extra ...string) *ExemptList {
	l := &ExemptList{exact: make(map[string]struct{})}
	for _, p := range defaultExemptExact {
		l.exact[p] = struct{}{}
	}
	l.prefixes = append(l.prefixes, defaultExemptPrefixes...)

	for _, p := range extra {
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "/") {
			l.prefixes = append(l.prefixes, p)
		} else {
			l.exact[p] = struct{}{}
		}
	}
	return l
}

// Match reports whether path is exempt from tenant context.
func (l *ExemptList) Match(path string) bool {
	if _, ok := l.exact[path]; ok {
		return true
	}
	for _, p := range l.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
