// Package middleware contains HTTP middleware for the Quill server.
//
// This file implements session authentication. WithUser resolves the
// session token into a user and stores it in the request context;
// RequireUser and RequireAdmin gate protected routes.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hollandv/quill/internal/auth"
	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/service"
)

// Session cookie constants. These match the values in handler/auth.go;
// the handler sets the cookie this middleware reads.
const (
	sessionCookieName = "quill_session"
	sessionCookiePath = "/"
)

// AuthMiddleware provides session-based authentication middleware.
type AuthMiddleware struct {
	userService service.UserService
	isAdmin     func(email string) bool
	logger      *slog.Logger
	isSecure    bool
}

// NewAuthMiddleware creates a new AuthMiddleware.
// isAdmin decides whether an authenticated user holds admin rights; it is
// typically Config.IsAdminEmail.
func NewAuthMiddleware(userService service.UserService, isAdmin func(email string) bool, logger *slog.Logger, isSecure bool) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		isAdmin:     isAdmin,
		logger:      logger,
		isSecure:    isSecure,
	}
}

// WithUser resolves the session token and stores the user in the request
// context. Requests without a valid session continue unauthenticated; an
// invalid or expired session cookie is cleared so the client stops sending it.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromCookie := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.userService.GetBySessionToken(r.Context(), token)
		if err != nil {
			if domain.ErrorCode(err) == domain.EUNAUTHORIZED {
				if fromCookie {
					m.clearSessionCookie(w)
				}
			} else {
				m.logger.Error("session lookup failed", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.SetUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects unauthenticated requests with 401.
// Must run after WithUser in the stack.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			writeAuthError(w, http.StatusUnauthorized, domain.EUNAUTHORIZED, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests from non-admin users with 403.
// Must run after WithUser in the stack.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			writeAuthError(w, http.StatusUnauthorized, domain.EUNAUTHORIZED, "Authentication required")
			return
		}
		if m.isAdmin == nil || !m.isAdmin(user.Email) {
			m.logger.Warn("admin route denied", "user_id", user.ID, "path", r.URL.Path)
			writeAuthError(w, http.StatusForbidden, domain.EFORBIDDEN, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionToken extracts the session token from the cookie or the
// Authorization header. Reports whether it came from the cookie so a stale
// cookie can be cleared without touching header-based clients.
func sessionToken(r *http.Request) (token string, fromCookie bool) {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}

	const prefix = "Bearer "
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, prefix) {
		return strings.TrimSpace(authz[len(prefix):]), false
	}

	return "", false
}

func (m *AuthMiddleware) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     sessionCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeAuthError writes a minimal JSON error without importing handler,
// which would create an import cycle.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided: the first middleware in the
// slice is the outermost (runs first on request, last on response).
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
