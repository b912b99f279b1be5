package core

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"fletoads/internal/types"
)

// errCodeIPBlocked is the error code returned when an IP address is blocked
// by the security service due to excessive failed authentication attempts.
const errCodeIPBlocked = "ip_blocked"

// errCodeCSRFInvalid is the error code returned when CSRF token validation
// fails for session-based authentication.
const errCodeCSRFInvalid = "csrf_token_invalid"

// IPSecurityMiddleware provides proactive IP-based blocking before
// authentication, rejecting known-bad IPs without performing expensive
// authentication checks (DB queries, bcrypt).
//
// If SecurityService is nil (e.g., during tests that don't inject it), the
// middleware passes through without blocking.
func (s *Server) IPSecurityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.SecurityService == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := extractClientIP(r)

		if s.SecurityService.IsIPBlocked(r.Context(), ip) {
			s.Logger.Warn("blocked request from IP",
				slog.String("ip", ip),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			resp := APIErrorResponse{
				Error: ErrorDetail{
					Code:      errCodeIPBlocked,
					Message:   "Access denied",
					RequestID: types.GetRequestID(r.Context()),
				},
			}
			JSON(w, r, http.StatusForbidden, resp)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CSRFMiddleware enforces CSRF protection for session-based authentication.
// It checks the Actor.Type from context (injected by AuthMiddleware).
//
// Validation logic:
//   - Safe methods (GET, HEAD, OPTIONS) are exempt.
//   - ActorTypeUser: the X-CSRF-Token header must match the token stored in
//     the session; mismatch is rejected with 403 Forbidden.
//   - ActorTypeSystem: skipped (internal calls).
//   - No Actor in context: skipped (AuthMiddleware handles the 401).
func (s *Server) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		actor, ok := types.GetActor(r.Context())
		if !ok || actor.Type != types.ActorTypeUser {
			next.ServeHTTP(w, r)
			return
		}

		headerToken := r.Header.Get("X-CSRF-Token")
		sessionToken, hasToken := types.GetSessionCSRFToken(r.Context())

		if !hasToken || headerToken == "" {
			s.Logger.Warn("CSRF token missing",
				slog.String("actor_id", actor.ID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			s.writeCSRFError(w, r, "CSRF token is required for this request")
			return
		}

		// Constant-time comparison to prevent timing attacks.
		if subtle.ConstantTimeCompare([]byte(headerToken), []byte(sessionToken)) != 1 {
			s.Logger.Warn("CSRF token mismatch",
				slog.String("actor_id", actor.ID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			s.writeCSRFError(w, r, "CSRF token is invalid")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeCSRFError(w http.ResponseWriter, r *http.Request, message string) {
	resp := APIErrorResponse{
		Error: ErrorDetail{
			Code:      errCodeCSRFInvalid,
			Message:   message,
			RequestID: types.GetRequestID(r.Context()),
		},
	}
	JSON(w, r, http.StatusForbidden, resp)
}

// extractClientIP extracts the client's IP address from the request.
// It first checks the X-Forwarded-For header (first entry, which is the
// original client IP behind a proxy), then falls back to RemoteAddr.
// The returned IP is always stripped of the port number if present.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		ip := strings.TrimSpace(parts[0])
		if ip != "" {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr may not have a port (e.g., in tests).
		return r.RemoteAddr
	}
	return ip
}

// isSafeMethod returns true for HTTP methods that should not cause state
// changes and are therefore exempt from CSRF validation.
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
