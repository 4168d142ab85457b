package server

import (
	"net/http"
	"net/url"
	"strings"
)

// originPolicy decides which Origin headers may upgrade.
type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

func newOriginPolicy(origins []string) *originPolicy {
	p := &originPolicy{allowed: make(map[string]struct{})}
	for _, o := range origins {
		trimmed := strings.TrimSpace(o)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			p.allowAll = true
			continue
		}
		if normalized, ok := normalizeOrigin(trimmed); ok {
			p.allowed[normalized] = struct{}{}
		}
	}
	return p
}

// check implements the gorilla CheckOrigin contract. A missing Origin
// header (non-browser client) is allowed; browsers are held to the
// configured list.
func (p *originPolicy) check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if p.allowAll {
		return true
	}

	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	if _, ok := p.allowed[normalized]; ok {
		return true
	}

	// Same-origin fallback when no list is configured.
	if len(p.allowed) == 0 {
		if u, err := url.Parse(origin); err == nil {
			return strings.EqualFold(u.Host, r.Host)
		}
	}
	return false
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
