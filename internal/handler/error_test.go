package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/hollandv/quill/internal/domain"
)

// =============================================================================
// Status Mapping Tests
// =============================================================================

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EGONE, http.StatusGone},
		{domain.EEXHAUSTED, http.StatusGone},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{domain.EUNAVAILABLE, http.StatusServiceUnavailable},
		{"bogus", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := ErrorCodeToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

// =============================================================================
// Error Response Tests - Security Focus
// =============================================================================

func TestValidationErrorResponse_DoesNotExposeOperationName(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ve := domain.NewValidationError("UserService.Register", "email", "Email is required")

	req := httptest.NewRequest("POST", "/api/auth/register", nil)
	rec := httptest.NewRecorder()

	ValidationErrorResponse(rec, req, logger, ve)

	body := rec.Body.String()

	if strings.Contains(body, "UserService") {
		t.Errorf("response exposes internal operation name: %s", body)
	}
	if !strings.Contains(body, "Validation failed") {
		t.Errorf("response should contain user-friendly message, got: %s", body)
	}
	if !strings.Contains(body, "Email is required") {
		t.Errorf("response should contain field message, got: %s", body)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestErrorResponse_InternalErrorHidesDetails(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dbErr := &mockOpaqueError{message: "pq: relation \"users\" does not exist"}
	internalErr := domain.Internal(dbErr, "UserService.GetByEmail", "Database query failed")

	req := httptest.NewRequest("GET", "/api/me", nil)
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, logger, internalErr)

	body := rec.Body.String()

	if strings.Contains(body, "pq:") {
		t.Errorf("response exposes database error: %s", body)
	}
	if strings.Contains(body, "relation") {
		t.Errorf("response exposes database schema: %s", body)
	}
	if strings.Contains(body, "UserService") {
		t.Errorf("response exposes internal operation: %s", body)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestErrorResponse_QuotaExceededIncludesStableCode(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	err := domain.QuotaExceeded("quota.consume", 10, 10)

	req := httptest.NewRequest("POST", "/api/chat/messages", nil)
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, logger, err)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}

	var resp JSONError
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Error.Code != domain.ERATELIMIT {
		t.Errorf("expected code %q, got %q", domain.ERATELIMIT, resp.Error.Code)
	}
	if strings.Contains(resp.Error.Message, "quota.consume") {
		t.Errorf("response exposes operation name: %s", resp.Error.Message)
	}
}

func TestErrorResponse_UnwrappedErrorReturnsGeneric(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	rawErr := &mockOpaqueError{message: "FATAL: password authentication failed for user \"postgres\""}

	req := httptest.NewRequest("GET", "/api/personas", nil)
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, logger, rawErr)

	body := rec.Body.String()

	if strings.Contains(body, "FATAL") {
		t.Errorf("response exposes raw error: %s", body)
	}
	if strings.Contains(body, "postgres") {
		t.Errorf("response exposes credentials context: %s", body)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestErrorResponse_SetsJSONContentType(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	req := httptest.NewRequest("GET", "/api/personas/missing", nil)
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, logger, domain.NotFound("PersonaService.GetByID", "persona", "abc"))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json content type, got %q", ct)
	}
}

// mockOpaqueError is a plain error carrying sensitive text.
type mockOpaqueError struct {
	message string
}

func (e *mockOpaqueError) Error() string {
	return e.message
}
