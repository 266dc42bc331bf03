package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func securityTestResponse(t *testing.T, isSecure bool) *httptest.ResponseRecorder {
	t.Helper()

	mw := NewSecurityHeadersMiddleware(isSecure)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders_AlwaysSet(t *testing.T) {
	rec := securityTestResponse(t, false)

	want := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("expected %s=%q, got %q", header, value, got)
		}
	}

	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'none'") {
		t.Errorf("expected locked-down CSP, got %q", csp)
	}
	if !strings.Contains(csp, "img-src 'self' https:") {
		t.Errorf("expected img-src for avatars, got %q", csp)
	}
}

func TestSecurityHeaders_HSTSOnlyWhenSecure(t *testing.T) {
	rec := securityTestResponse(t, false)
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("expected no HSTS header when not secure")
	}

	rec = securityTestResponse(t, true)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS header when secure")
	}
}
