// Package auth implements the optional constant-time password check
// gating the HTTP control surface. No third-party library in the
// surrounding stack covers constant-time comparison; crypto/subtle is the
// standard tool for exactly this job, so it is used directly (see
// DESIGN.md).
package auth

import (
	"crypto/subtle"
	"net/http"
)

// Checker validates the Authorization header against a configured
// password. A zero-value Checker (empty password) accepts every request,
// matching "no password configured" in the configuration contract.
type Checker struct {
	password []byte
}

// New constructs a Checker for the given configured password. An empty
// password disables authentication entirely.
func New(password string) *Checker {
	return &Checker{password: []byte(password)}
}

// Allow reports whether r carries the correct Authorization header. When
// no password is configured, every request is allowed.
func (c *Checker) Allow(r *http.Request) bool {
	if len(c.password) == 0 {
		return true
	}
	got := []byte(r.Header.Get("Authorization"))
	if len(got) != len(c.password) {
		return false
	}
	return subtle.ConstantTimeCompare(got, c.password) == 1
}

// Middleware wraps next, responding 401 to requests that fail Allow.
func (c *Checker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.Allow(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
