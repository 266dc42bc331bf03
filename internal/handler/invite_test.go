package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hollandv/quill/internal/domain"
)

// =============================================================================
// Mock Invite Service
// =============================================================================

type mockInviteService struct {
	validateFn func(ctx context.Context, code, email string) (*domain.Invite, error)
}

func (m *mockInviteService) Create(ctx context.Context, params domain.CreateInviteParams) (*domain.Invite, error) {
	return nil, domain.Errorf(domain.ENOTIMPL, "mock", "not implemented")
}

func (m *mockInviteService) Validate(ctx context.Context, code, email string) (*domain.Invite, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, code, email)
	}
	return nil, domain.NotFound("mock", "invite", code)
}

func (m *mockInviteService) Redeem(ctx context.Context, code, email string) (*domain.Invite, error) {
	return nil, domain.NotFound("mock", "invite", code)
}

func (m *mockInviteService) ListByInviter(ctx context.Context, invitedBy uuid.UUID) ([]*domain.Invite, error) {
	return nil, nil
}

func (m *mockInviteService) Cleanup(ctx context.Context) (int64, error) {
	return 0, nil
}

// =============================================================================
// Validate Tests
// =============================================================================

const testInviteCode = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func postValidate(t *testing.T, h *InviteHandler, code string) *httptest.ResponseRecorder {
	t.Helper()

	body := `{"code":"` + code + `"}`
	req := httptest.NewRequest("POST", "/api/invites/validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Validate(rec, req)
	return rec
}

func TestInviteHandler_Validate_Success(t *testing.T) {
	svc := &mockInviteService{
		validateFn: func(ctx context.Context, code, email string) (*domain.Invite, error) {
			return &domain.Invite{Code: code, MaxUses: 1}, nil
		},
	}
	h := NewInviteHandler(svc, testLogger())

	rec := postValidate(t, h, testInviteCode)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"valid":true`) {
		t.Errorf("expected valid:true in body, got %s", rec.Body.String())
	}
}

func TestInviteHandler_Validate_FailuresReturn400(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"unknown code", domain.NotFound("InviteService.Validate", "invite", "x"), domain.ENOTFOUND},
		{"expired code", domain.InviteExpired("InviteService.Validate"), domain.EGONE},
		{"exhausted code", domain.InviteExhausted("InviteService.Validate"), domain.EEXHAUSTED},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockInviteService{
				validateFn: func(ctx context.Context, code, email string) (*domain.Invite, error) {
					return nil, tt.err
				},
			}
			h := NewInviteHandler(svc, testLogger())

			rec := postValidate(t, h, testInviteCode)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}

			var resp JSONError
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse error body: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("expected %s code in body, got %s", tt.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestInviteHandler_Validate_MalformedCode(t *testing.T) {
	h := NewInviteHandler(&mockInviteService{}, testLogger())

	// Wrong length fails request validation before the service runs
	rec := postValidate(t, h, "tooshort")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}
