package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hollandv/quill/internal/domain"
)

// =============================================================================
// Mock UserService
// =============================================================================

// mockUserService implements service.UserService for handler tests.
// Each func field defaults to a not-implemented error so tests only stub
// what they exercise.
type mockUserService struct {
	registerFn       func(ctx context.Context, params domain.RegisterParams) (*domain.User, error)
	loginFn          func(ctx context.Context, email, password string) (*domain.LoginResult, error)
	logoutFn         func(ctx context.Context, token string) error
	getByCustomerFn  func(ctx context.Context, customerID string) (*domain.User, error)
	getByEmailFn     func(ctx context.Context, email string) (*domain.User, error)
	updateSubFn      func(ctx context.Context, userID uuid.UUID, status, tier, subscriptionID string) error
	updateCustomerFn func(ctx context.Context, userID uuid.UUID, customerID string) error
}

func (m *mockUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, params)
	}
	return nil, domain.Errorf(domain.ENOTIMPL, "mock", "not implemented")
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, domain.Errorf(domain.ENOTIMPL, "mock", "not implemented")
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, domain.NotFound("mock", "user", id.String())
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, domain.NotFound("mock", "user", email)
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	return nil, domain.Unauthorized("mock", "Invalid or expired session")
}

func (m *mockUserService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockUserService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	if m.updateCustomerFn != nil {
		return m.updateCustomerFn(ctx, userID, customerID)
	}
	return nil
}

func (m *mockUserService) UpdateSubscription(ctx context.Context, userID uuid.UUID, status, tier, subscriptionID string) error {
	if m.updateSubFn != nil {
		return m.updateSubFn(ctx, userID, status, tier, subscriptionID)
	}
	return nil
}

func (m *mockUserService) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	if m.getByCustomerFn != nil {
		return m.getByCustomerFn(ctx, customerID)
	}
	return nil, domain.NotFound("mock", "user", customerID)
}

func testUser() *domain.User {
	return &domain.User{
		ID:                 uuid.New(),
		Email:              "pat@example.com",
		Name:               "Pat",
		SubscriptionStatus: domain.SubscriptionStatusInactive,
		SubscriptionTier:   domain.SubscriptionTierFree,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// =============================================================================
// Register Tests
// =============================================================================

func TestAuthHandler_Register_Success(t *testing.T) {
	user := testUser()
	svc := &mockUserService{
		registerFn: func(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
			if params.Email != "pat@example.com" {
				t.Errorf("unexpected email: %s", params.Email)
			}
			return user, nil
		},
	}
	h := NewAuthHandler(svc, testLogger(), false)

	body := `{"email":"pat@example.com","password":"strongpassword","name":"Pat"}`
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		User userResponse `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.User.Email != user.Email {
		t.Errorf("expected email %q, got %q", user.Email, resp.User.Email)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("response must not echo password fields: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	svc := &mockUserService{
		registerFn: func(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
			return nil, domain.Conflict("UserService.Register", "Email already registered")
		},
	}
	h := NewAuthHandler(svc, testLogger(), false)

	body := `{"email":"pat@example.com","password":"strongpassword","name":"Pat"}`
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_ShortPassword(t *testing.T) {
	h := NewAuthHandler(&mockUserService{}, testLogger(), false)

	body := `{"email":"pat@example.com","password":"short","name":"Pat"}`
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "password") {
		t.Errorf("expected a password field error, got: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_ExhaustedInvite(t *testing.T) {
	svc := &mockUserService{
		registerFn: func(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
			return nil, domain.InviteExhausted("UserService.Register")
		},
	}
	h := NewAuthHandler(svc, testLogger(), false)

	body := `{"email":"pat@example.com","password":"strongpassword","name":"Pat","invite_code":"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"}`
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}

	var resp JSONError
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse error body: %v", err)
	}
	if resp.Error.Code != domain.EEXHAUSTED {
		t.Errorf("expected %s code in body, got %s", domain.EEXHAUSTED, resp.Error.Code)
	}
}

func TestAuthHandler_Register_UnknownInvite(t *testing.T) {
	svc := &mockUserService{
		registerFn: func(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
			return nil, domain.NotFound("UserService.Register", "invite", params.InviteCode)
		},
	}
	h := NewAuthHandler(svc, testLogger(), false)

	body := `{"email":"pat@example.com","password":"strongpassword","name":"Pat","invite_code":"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"}`
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	// An unknown invite code is bad input on this endpoint, not a missing
	// resource.
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

// =============================================================================
// Login Tests
// =============================================================================

func TestAuthHandler_Login_Success(t *testing.T) {
	user := testUser()
	svc := &mockUserService{
		loginFn: func(ctx context.Context, email, password string) (*domain.LoginResult, error) {
			return &domain.LoginResult{User: user, Token: "sessiontoken"}, nil
		},
	}
	h := NewAuthHandler(svc, testLogger(), false)

	body := `{"email":"pat@example.com","password":"strongpassword"}`
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string       `json:"token"`
		User  userResponse `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Token != "sessiontoken" {
		t.Errorf("expected session token in body, got %q", resp.Token)
	}

	cookies := rec.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == sessionCookieName {
			found = true
			if c.Value != "sessiontoken" {
				t.Errorf("cookie value mismatch: %q", c.Value)
			}
			if !c.HttpOnly {
				t.Error("session cookie must be HttpOnly")
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set")
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	svc := &mockUserService{
		loginFn: func(ctx context.Context, email, password string) (*domain.LoginResult, error) {
			return nil, domain.Unauthorized("UserService.Login", "Invalid email or password")
		},
	}
	h := NewAuthHandler(svc, testLogger(), false)

	body := `{"email":"pat@example.com","password":"wrongpassword"}`
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("no cookie should be set on failed login")
	}
}

// =============================================================================
// Logout Tests
// =============================================================================

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	var loggedOut string
	svc := &mockUserService{
		logoutFn: func(ctx context.Context, token string) error {
			loggedOut = token
			return nil
		},
	}
	h := NewAuthHandler(svc, testLogger(), false)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sessiontoken"})
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if loggedOut != "sessiontoken" {
		t.Errorf("expected logout with session token, got %q", loggedOut)
	}

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.MaxAge != -1 {
			t.Error("session cookie should be expired")
		}
	}
}

func TestAuthHandler_Logout_NoSession(t *testing.T) {
	h := NewAuthHandler(&mockUserService{}, testLogger(), false)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("logout without a session should still succeed, got %d", rec.Code)
	}
}

// =============================================================================
// Token Extraction Tests
// =============================================================================

func TestSessionTokenFromRequest(t *testing.T) {
	// Cookie
	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "fromcookie"})
	if got := sessionTokenFromRequest(req); got != "fromcookie" {
		t.Errorf("expected cookie token, got %q", got)
	}

	// Bearer header
	req = httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer fromheader")
	if got := sessionTokenFromRequest(req); got != "fromheader" {
		t.Errorf("expected header token, got %q", got)
	}

	// Cookie wins over header
	req = httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "fromcookie"})
	req.Header.Set("Authorization", "Bearer fromheader")
	if got := sessionTokenFromRequest(req); got != "fromcookie" {
		t.Errorf("cookie should take precedence, got %q", got)
	}

	// Neither
	req = httptest.NewRequest("GET", "/api/me", nil)
	if got := sessionTokenFromRequest(req); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
}
