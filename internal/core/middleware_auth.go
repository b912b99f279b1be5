package core

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"fletoads/internal/types"
)

// SessionCookieName is the cookie under which the browser carries the
// session token. Bearer tokens in the Authorization header are accepted as
// an equivalent for non-browser clients.
const SessionCookieName = "fletoads_session"

// authPublicPaths lists URL paths that are exempt from authentication.
var authPublicPaths = map[string]bool{
	"/health": true,
}

// authPublicPrefixes lists URL path prefixes that are exempt from
// authentication: registration, login, the public vitrine lookup, the plan
// catalog, and the Stripe webhook (verified by signature instead).
var authPublicPrefixes = []string{
	"/v1/auth/register",
	"/v1/auth/login",
	"/v1/vitrine/",
	"/v1/planos",
	"/v1/webhooks/stripe",
}

// AuthMiddleware wraps handlers requiring authentication.
//
//  1. Extracts the session token from the session cookie or, failing that,
//     the Authorization Bearer header.
//  2. Calls Authenticator.ResolveToken to resolve the token to an Actor and
//     the session's CSRF token.
//  3. Injects both into the request context.
//  4. Returns 401 Unauthorized on failure with distinct error codes:
//     - auth_token_missing: no cookie and no Bearer token.
//     - auth_token_invalid: token is malformed or not found.
//     - auth_session_expired: session exists but has expired.
//
// If the Authenticator field on Server is nil (e.g., during tests that don't
// inject one), the middleware passes through without authentication.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Authenticator == nil {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := extractSessionToken(r)
		if token == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Authentication is required")
			return
		}

		actor, csrfToken, err := s.Authenticator.ResolveToken(r.Context(), token)
		if err != nil {
			s.handleAuthError(w, r, err)
			return
		}
		if actor == nil {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid session token")
			return
		}

		ctx := types.WithActor(r.Context(), *actor)
		if csrfToken != "" {
			ctx = types.WithSessionCSRFToken(ctx, csrfToken)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isPublicPath(path string) bool {
	if authPublicPaths[path] {
		return true
	}
	for _, prefix := range authPublicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// extractSessionToken pulls the session token from the session cookie or the
// Authorization header ("Bearer <token>", case-insensitive scheme per
// RFC 7235). Returns empty string if neither carries a token.
func extractSessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	const prefix = "Bearer "
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < len(prefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}

// handleAuthError inspects the error from Authenticator.ResolveToken and
// writes the appropriate 401 response with the correct error code.
func (s *Server) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case types.ErrCodeAuthSessionExpired:
			s.Logger.Warn("authentication failed: session expired",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthSessionExpired, "Session has expired")
			return
		case types.ErrCodeAuthTokenInvalid:
			s.Logger.Warn("authentication failed: token invalid",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid session token")
			return
		}
	}

	// Generic error: log it but don't leak internal details.
	s.Logger.Error("authentication failed: unexpected error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Authentication failed")
}

// writeAuthError writes a 401 Unauthorized JSON response with the given error code.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string) {
	resp := APIErrorResponse{
		Error: ErrorDetail{
			Code:      string(code),
			Message:   message,
			RequestID: types.GetRequestID(r.Context()),
		},
	}
	JSON(w, r, http.StatusUnauthorized, resp)
}

// RequireRole returns middleware that checks if the Actor in the request
// context has a role equal to or higher than the specified role.
//
// If the Actor is not present in context (unauthenticated), returns 401.
// If the Actor's role is insufficient, returns 403 Forbidden.
// System actors bypass role checks entirely.
func (s *Server) RequireRole(role types.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := types.GetActor(r.Context())
			if !ok {
				s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Authentication required")
				return
			}

			if actor.Type == types.ActorTypeSystem {
				next.ServeHTTP(w, r)
				return
			}

			if !types.RoleHasAtLeast(actor.Role, role) {
				resp := APIErrorResponse{
					Error: ErrorDetail{
						Code:      string(types.ErrCodePermissionRole),
						Message:   "Insufficient role for this operation",
						RequestID: types.GetRequestID(r.Context()),
					},
				}
				JSON(w, r, http.StatusForbidden, resp)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// EnsureSelfOrAdmin authorizes access to a user-scoped resource: the actor
// must be the resource owner or carry the admin role. Returns a 403
// ownership error otherwise.
func EnsureSelfOrAdmin(actor types.Actor, targetUserID string) error {
	if actor.Type == types.ActorTypeSystem || actor.IsAdmin() || actor.ID == targetUserID {
		return nil
	}
	return types.NewAppError(types.ErrCodePermissionOwnership,
		"you do not have access to this resource", nil)
}
