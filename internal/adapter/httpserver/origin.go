package httpserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// NewCheckOrigin returns the upgrader's origin check. It allows requests without an
// Origin header (native apps), pages served by this host, and every origin in allowed.
// A "*" entry disables the check.
func NewCheckOrigin(allowed []string) func(r *http.Request) bool {
	allowAll := slices.Contains(allowed, "*")
	normalized := make([]string, 0, len(allowed))
	for _, o := range allowed {
		normalized = append(normalized, strings.TrimSuffix(strings.ToLower(o), "/"))
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}

		u, err := url.Parse(origin)
		if err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}

		if slices.Contains(normalized, strings.ToLower(origin)) {
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}
