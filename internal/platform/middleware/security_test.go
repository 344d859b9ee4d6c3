package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSecurityMiddlewareSetsHeaders(t *testing.T) {
	h := Security()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/Index", nil))

	for _, kv := range securityHeaders {
		if got := resp.Header().Get(kv[0]); got != kv[1] {
			t.Errorf("%s: expected %q, got %q", kv[0], kv[1], got)
		}
	}
	if got := resp.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
}

func TestSecurityMiddlewareSkipsPaths(t *testing.T) {
	h := Security("/api-docs")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api-docs", nil))

	if got := resp.Header().Get("Content-Security-Policy"); got != "" {
		t.Fatalf("expected no CSP on skipped path, got %q", got)
	}
}

func TestSecurityMiddlewareIgnoresEmptySkipPath(t *testing.T) {
	h := Security("")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/Index", nil))

	if got := resp.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected headers despite empty skip path, got %q", got)
	}
}

func TestSecurityMiddlewareAllowsDownstreamOverride(t *testing.T) {
	h := Security()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "max-age=3600")
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := resp.Header().Get("Cache-Control"); got != "max-age=3600" {
		t.Fatalf("expected downstream Cache-Control, got %q", got)
	}
}
