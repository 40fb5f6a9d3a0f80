package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNoPasswordAllowsEverything(t *testing.T) {
	c := New("")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if !c.Allow(r) {
		t.Fatal("expected empty password to allow all requests")
	}
}

func TestCorrectPasswordAllowed(t *testing.T) {
	c := New("s3cret")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "s3cret")
	if !c.Allow(r) {
		t.Fatal("expected correct password to be allowed")
	}
}

func TestWrongPasswordRejected(t *testing.T) {
	c := New("s3cret")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "wrong")
	if c.Allow(r) {
		t.Fatal("expected wrong password to be rejected")
	}
}

func TestMiddlewareRejectsWithUnauthorized(t *testing.T) {
	c := New("s3cret")
	handler := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
