package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hollandv/quill/internal/auth"
	"github.com/hollandv/quill/internal/domain"
)

// =============================================================================
// Mock User Service
// =============================================================================

// sessionUserService implements service.UserService; only GetBySessionToken
// is exercised by this middleware.
type sessionUserService struct {
	sessions map[string]*domain.User
}

func (m *sessionUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	return nil, domain.Errorf(domain.ENOTIMPL, "mock", "not implemented")
}

func (m *sessionUserService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	return nil, domain.Errorf(domain.ENOTIMPL, "mock", "not implemented")
}

func (m *sessionUserService) Logout(ctx context.Context, token string) error {
	return nil
}

func (m *sessionUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, domain.NotFound("mock", "user", id.String())
}

func (m *sessionUserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, domain.NotFound("mock", "user", email)
}

func (m *sessionUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if user, ok := m.sessions[token]; ok {
		return user, nil
	}
	return nil, domain.Unauthorized("mock", "Invalid or expired session")
}

func (m *sessionUserService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *sessionUserService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error {
	return nil
}

func (m *sessionUserService) UpdateSubscription(ctx context.Context, userID uuid.UUID, status, tier, subscriptionID string) error {
	return nil
}

func (m *sessionUserService) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	return nil, domain.NotFound("mock", "user", customerID)
}

// =============================================================================
// Helpers
// =============================================================================

func testAuthMiddleware(sessions map[string]*domain.User, isAdmin func(string) bool) *AuthMiddleware {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewAuthMiddleware(&sessionUserService{sessions: sessions}, isAdmin, logger, false)
}

func sessionTestUser(email string) *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: email,
		Name:  "Test User",
	}
}

// echoUserHandler writes the authenticated user's email, or "anonymous".
func echoUserHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := auth.GetUser(r.Context()); user != nil {
			w.Write([]byte(user.Email))
			return
		}
		w.Write([]byte("anonymous"))
	})
}

// =============================================================================
// WithUser Tests
// =============================================================================

func TestWithUser_ValidCookie(t *testing.T) {
	user := sessionTestUser("alice@example.com")
	mw := testAuthMiddleware(map[string]*domain.User{"tok123": user}, nil)

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "quill_session", Value: "tok123"})
	rec := httptest.NewRecorder()

	mw.WithUser(echoUserHandler()).ServeHTTP(rec, req)

	if rec.Body.String() != "alice@example.com" {
		t.Errorf("expected user to be resolved from cookie, got %q", rec.Body.String())
	}
}

func TestWithUser_BearerToken(t *testing.T) {
	user := sessionTestUser("alice@example.com")
	mw := testAuthMiddleware(map[string]*domain.User{"tok123": user}, nil)

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer tok123")
	rec := httptest.NewRecorder()

	mw.WithUser(echoUserHandler()).ServeHTTP(rec, req)

	if rec.Body.String() != "alice@example.com" {
		t.Errorf("expected user to be resolved from bearer token, got %q", rec.Body.String())
	}
}

func TestWithUser_NoToken(t *testing.T) {
	mw := testAuthMiddleware(nil, nil)

	req := httptest.NewRequest("GET", "/api/personas", nil)
	rec := httptest.NewRecorder()

	mw.WithUser(echoUserHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected unauthenticated request to continue, got %d", rec.Code)
	}
	if rec.Body.String() != "anonymous" {
		t.Errorf("expected no user in context, got %q", rec.Body.String())
	}
}

func TestWithUser_StaleCookieCleared(t *testing.T) {
	mw := testAuthMiddleware(nil, nil)

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "quill_session", Value: "expired"})
	rec := httptest.NewRecorder()

	mw.WithUser(echoUserHandler()).ServeHTTP(rec, req)

	// Request continues unauthenticated but the dead cookie is removed
	if rec.Body.String() != "anonymous" {
		t.Errorf("expected anonymous request, got %q", rec.Body.String())
	}

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "quill_session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected stale session cookie to be cleared")
	}
}

func TestWithUser_StaleBearerNotCleared(t *testing.T) {
	mw := testAuthMiddleware(nil, nil)

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()

	mw.WithUser(echoUserHandler()).ServeHTTP(rec, req)

	if len(rec.Result().Cookies()) != 0 {
		t.Error("expected no cookie changes for header-based auth")
	}
}

// =============================================================================
// RequireUser Tests
// =============================================================================

func TestRequireUser_Authenticated(t *testing.T) {
	user := sessionTestUser("alice@example.com")
	mw := testAuthMiddleware(map[string]*domain.User{"tok123": user}, nil)

	req := httptest.NewRequest("GET", "/api/conversations", nil)
	req.AddCookie(&http.Cookie{Name: "quill_session", Value: "tok123"})
	rec := httptest.NewRecorder()

	handler := mw.WithUser(mw.RequireUser(echoUserHandler()))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireUser_Unauthenticated(t *testing.T) {
	mw := testAuthMiddleware(nil, nil)

	req := httptest.NewRequest("GET", "/api/conversations", nil)
	rec := httptest.NewRecorder()

	handler := mw.WithUser(mw.RequireUser(echoUserHandler()))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error response, got content type %s", ct)
	}
	if !strings.Contains(rec.Body.String(), domain.EUNAUTHORIZED) {
		t.Errorf("expected %s code in body, got %s", domain.EUNAUTHORIZED, rec.Body.String())
	}
}

// =============================================================================
// RequireAdmin Tests
// =============================================================================

func TestRequireAdmin_AdminUser(t *testing.T) {
	admin := sessionTestUser("admin@example.com")
	isAdmin := func(email string) bool { return email == "admin@example.com" }
	mw := testAuthMiddleware(map[string]*domain.User{"tok123": admin}, isAdmin)

	req := httptest.NewRequest("POST", "/api/personas", nil)
	req.AddCookie(&http.Cookie{Name: "quill_session", Value: "tok123"})
	rec := httptest.NewRecorder()

	handler := mw.WithUser(mw.RequireAdmin(echoUserHandler()))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestRequireAdmin_NonAdminUser(t *testing.T) {
	user := sessionTestUser("alice@example.com")
	isAdmin := func(email string) bool { return email == "admin@example.com" }
	mw := testAuthMiddleware(map[string]*domain.User{"tok123": user}, isAdmin)

	req := httptest.NewRequest("POST", "/api/personas", nil)
	req.AddCookie(&http.Cookie{Name: "quill_session", Value: "tok123"})
	rec := httptest.NewRecorder()

	handler := mw.WithUser(mw.RequireAdmin(echoUserHandler()))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", rec.Code)
	}
}

func TestRequireAdmin_Unauthenticated(t *testing.T) {
	mw := testAuthMiddleware(nil, func(string) bool { return true })

	req := httptest.NewRequest("POST", "/api/personas", nil)
	rec := httptest.NewRecorder()

	handler := mw.WithUser(mw.RequireAdmin(echoUserHandler()))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a session, got %d", rec.Code)
	}
}

// =============================================================================
// Stack Tests
// =============================================================================

func TestStack_Order(t *testing.T) {
	var order []string
	mk := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Stack(mk("first"), mk("second"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"first", "second", "handler"}
	for i, name := range want {
		if i >= len(order) || order[i] != name {
			t.Fatalf("expected call order %v, got %v", want, order)
		}
	}
}
