// Package auth enforces the shared API-key credential on incoming requests.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// HeaderName is the request header carrying the shared credential.
const HeaderName = "X-API-Key"

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// Config holds the expected credential.
type Config struct {
	APIKey string
}

// Middleware rejects requests whose API key is absent or mismatched before
// they reach any handler.
type Middleware struct {
	cfg     Config
	skipper Skipper
}

// NewMiddleware constructs a Middleware with optional skipper.
func NewMiddleware(cfg Config, skipper Skipper) Middleware {
	return Middleware{cfg: cfg, skipper: skipper}
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipper != nil && m.skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		supplied := r.Header.Get(HeaderName)
		if supplied == "" {
			unauthorized(w, "missing "+HeaderName+" header")
			return
		}
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(m.cfg.APIKey)) != 1 {
			unauthorized(w, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"type":   "unauthorized",
		"detail": detail,
	})
}
