package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		rawQuery string
		want     string
	}{
		{
			name: "no query",
			path: "/api/personas",
			want: "/api/personas",
		},
		{
			name:     "safe query preserved",
			path:     "/api/knowledge/search",
			rawQuery: "q=refunds&limit=5",
			want:     "/api/knowledge/search?q=refunds&limit=5",
		},
		{
			name:     "invite code redacted",
			path:     "/api/invites/validate",
			rawQuery: "invite_code=abc123",
			want:     "/api/invites/validate?invite_code=[REDACTED]",
		},
		{
			name:     "token redacted",
			path:     "/api/me",
			rawQuery: "token=secret123",
			want:     "/api/me?token=[REDACTED]",
		},
		{
			name:     "mixed query redacts only sensitive",
			path:     "/api/invites/validate",
			rawQuery: "code=xyz&limit=10",
			want:     "/api/invites/validate?code=[REDACTED]&limit=10",
		},
		{
			name:     "case insensitive keys",
			path:     "/api/me",
			rawQuery: "Access_Token=abc",
			want:     "/api/me?Access_Token=[REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizePath(tt.path, tt.rawQuery); got != tt.want {
				t.Errorf("sanitizePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestLoggingMiddleware_LogsRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	mw := NewRequestLoggingMiddleware(logger)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest("POST", "/api/chat/messages", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, "/api/chat/messages") {
		t.Errorf("expected path in log output, got %s", out)
	}
	if !strings.Contains(out, "status=201") {
		t.Errorf("expected status in log output, got %s", out)
	}
}

func TestRequestLoggingMiddleware_SkipsNoisyPaths(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	mw := NewRequestLoggingMiddleware(logger)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/metrics", "/files/avatars/x.webp"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	if buf.Len() != 0 {
		t.Errorf("expected no log output for skipped paths, got %s", buf.String())
	}
}

func TestRequestLoggingMiddleware_RedactsSensitiveQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	mw := NewRequestLoggingMiddleware(logger)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/invites/validate?invite_code=supersecret", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := buf.String()
	if strings.Contains(out, "supersecret") {
		t.Errorf("invite code leaked into log output: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("expected redaction marker in log output, got %s", out)
	}
}

func TestRequestLoggingMiddleware_WarnsOnServerError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	mw := NewRequestLoggingMiddleware(logger)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest("GET", "/api/personas", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected WARN level for 5xx response, got %s", buf.String())
	}
}
