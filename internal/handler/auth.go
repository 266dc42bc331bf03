// Package handler contains HTTP handlers for the Quill API.
//
// This file implements authentication: registration, login, and logout.
//
// Routes handled:
//   - POST /api/auth/register -> Register
//   - POST /api/auth/login    -> Login
//   - POST /api/auth/logout   -> Logout
//
// On login the session token is returned in the response body and also set
// as an HttpOnly cookie, so both browser clients and API clients can
// authenticate subsequent requests.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hollandv/quill/internal/auth"
	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/service"
)

// Session cookie constants. These match the values in middleware/auth.go;
// the middleware reads the cookie this handler sets.
const (
	sessionCookieName   = "quill_session"
	sessionCookiePath   = "/"
	sessionCookieMaxAge = 7 * 24 * 60 * 60
)

// AuthHandler handles authentication HTTP requests.
type AuthHandler struct {
	userService service.UserService
	logger      *slog.Logger
	isSecure    bool
}

// NewAuthHandler creates a new AuthHandler.
// Set isSecure in production to mark session cookies Secure.
func NewAuthHandler(userService service.UserService, logger *slog.Logger, isSecure bool) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger,
		isSecure:    isSecure,
	}
}

// RegisterRoutes registers auth routes on the provided mux.
// These routes are public; rate limiting is applied by the caller.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, limitRegister, limitLogin func(http.Handler) http.Handler) {
	mux.Handle("POST /api/auth/register", limitRegister(http.HandlerFunc(h.Register)))
	mux.Handle("POST /api/auth/login", limitLogin(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
}

// registerRequest is the request body for POST /api/auth/register.
type registerRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Name       string `json:"name" validate:"required,max=100"`
	InviteCode string `json:"invite_code" validate:"omitempty,len=64"`
}

// loginRequest is the request body for POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// userResponse is the public representation of a user.
// The password hash and Stripe identifiers never leave the server.
type userResponse struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	SubscriptionStatus string `json:"subscription_status"`
	SubscriptionTier   string `json:"subscription_tier"`
	CreatedAt          string `json:"created_at"`
}

func userToResponse(u *domain.User) userResponse {
	return userResponse{
		ID:                 u.ID.String(),
		Email:              u.Email,
		Name:               u.Name,
		SubscriptionStatus: string(u.SubscriptionStatus),
		SubscriptionTier:   string(u.SubscriptionTier),
		CreatedAt:          u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Register creates a new user account.
//
// Responds 201 with the new user on success, 409 when the email is taken,
// and 400 for weak passwords and invalid, expired, or spent invite codes.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.userService.Register(r.Context(), domain.RegisterParams{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		InviteCode: req.InviteCode,
	})
	if err != nil {
		InviteFailureResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "email", user.Email)

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user": userToResponse(user),
	})
}

// Login authenticates a user and creates a session.
//
// Responds 200 with the session token and user, or 401 for bad credentials.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.setSessionCookie(w, result.Token)

	h.logger.Info("user logged in", "user_id", result.User.ID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": result.Token,
		"user":  userToResponse(result.User),
	})
}

// Logout invalidates the current session and clears the cookie.
// Always responds 204, even when no session existed.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := sessionTokenFromRequest(r)
	if token != "" {
		if err := h.userService.Logout(r.Context(), token); err != nil {
			h.logger.Warn("logout failed", "error", err)
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user. Registered behind RequireUser.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user": userToResponse(user),
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     sessionCookiePath,
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   h.isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     sessionCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionTokenFromRequest extracts the session token from the cookie or the
// Authorization header. The cookie wins when both are present.
func sessionTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	const prefix = "Bearer "
	authz := r.Header.Get("Authorization")
	if len(authz) > len(prefix) && authz[:len(prefix)] == prefix {
		return authz[len(prefix):]
	}
	return ""
}
