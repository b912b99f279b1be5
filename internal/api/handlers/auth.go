package handlers

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fletoads/internal/core"
	"fletoads/internal/types"
)

// AuthService is the account lifecycle contract used by the auth handler.
type AuthService interface {
	Register(ctx context.Context, nome, email, password, ip, userAgent string) (*types.Usuario, *types.Sessao, error)
	Login(ctx context.Context, email, password, ip, userAgent string) (*types.Usuario, *types.Sessao, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthUserSource loads the authenticated user's own profile.
type AuthUserSource interface {
	GetByID(ctx context.Context, id string) (*types.Usuario, error)
}

// RegisterRequest is the request body for POST /v1/auth/register.
type RegisterRequest struct {
	Nome     string `json:"nome" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the request body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse is returned by register and login. The session ID itself
// travels only in the HttpOnly cookie; the CSRF token is exposed so the
// frontend can echo it in the X-CSRF-Token header.
type SessionResponse struct {
	Usuario   *types.Usuario `json:"usuario"`
	CSRFToken string         `json:"csrf_token"`
	ExpiresAt string         `json:"expires_at"`
}

// AuthHandler serves registration, login, logout, and the profile endpoint.
type AuthHandler struct {
	service      AuthService
	users        AuthUserSource
	validator    *core.Validator
	logger       *slog.Logger
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie should be false
// only in local development, where there is no TLS.
func NewAuthHandler(
	service AuthService,
	users AuthUserSource,
	v *core.Validator,
	logger *slog.Logger,
	secureCookie bool,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		service:      service,
		users:        users,
		validator:    v,
		logger:       logger,
		secureCookie: secureCookie,
	}
}

// RegisterRoutes mounts the auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})
}

// Register handles POST /v1/auth/register. A successful registration logs
// the user in immediately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	user, session, err := h.service.Register(r.Context(), req.Nome, req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, session)
	core.JSON(w, r, http.StatusCreated, sessionResponse(user, session))
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	user, session, err := h.service.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, session)
	core.JSON(w, r, http.StatusOK, sessionResponse(user, session))
}

// Logout handles POST /v1/auth/logout. The session is destroyed server-side
// and the cookie is expired. Logging out without a session is a no-op 204.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(core.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, user)
}

func sessionResponse(user *types.Usuario, session *types.Sessao) SessionResponse {
	return SessionResponse{
		Usuario:   user,
		CSRFToken: session.CSRFToken,
		ExpiresAt: session.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *types.Sessao) {
	http.SetCookie(w, &http.Cookie{
		Name:     core.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     core.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// clientIP extracts the originating client address, preferring the first
// X-Forwarded-For entry set by the load balancer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
