package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ScopeReadAll lets a caller read other users' goals and the full
// leaderboard. Callers without it are restricted to their own subject.
const ScopeReadAll = "goals:read_all"

// Skipper decides which requests bypass token verification.
type Skipper func(r *http.Request) bool

// DefaultSkipper leaves health and metrics scraping unauthenticated.
func DefaultSkipper(r *http.Request) bool {
	return r.URL.Path == "/healthz"
}

// Middleware verifies the Authorization header and attaches claims to the
// request context. With an empty secret it is a pass-through.
func Middleware(cfg Config, skip Skipper, next http.Handler) http.Handler {
	if !cfg.Enabled() {
		return next
	}
	if skip == nil {
		skip = DefaultSkipper
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims, err := Parse(raw, cfg)
		if err != nil {
			writeUnauthorized(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "unauthorized",
		"message": err.Error(),
	})
}
