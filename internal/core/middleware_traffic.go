package core

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"fletoads/internal/types"
)

// defaultRateLimitWindow is the window over which per-user request counters
// accumulate.
const defaultRateLimitWindow = time.Minute

// defaultRateLimitMax is the maximum number of requests per user per window.
const defaultRateLimitMax = 300

// RateLimit uses a backing store to enforce per-user request ceilings.
//
// The middleware extracts the Actor from the request context (set by
// AuthMiddleware) and calls RateLimitStore.IncrementAndCheck to atomically
// increment the counter and check against the limit.
//
// If no RateLimitStore is configured (e.g., during tests or when Redis is
// not deployed), the middleware passes through without rate limiting.
// If no Actor is in the context, the middleware passes through and
// AuthMiddleware handles the 401.
//
// On every counted request the middleware sets standard headers:
//   - X-RateLimit-Limit: the maximum number of requests in the window.
//   - X-RateLimit-Remaining: the number of requests remaining.
//   - X-RateLimit-Reset: Unix timestamp when the window resets.
//
// When rate limited, the middleware also sets Retry-After.
func (s *Server) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.RateLimitStore == nil {
			next.ServeHTTP(w, r)
			return
		}

		actor, ok := types.GetActor(r.Context())
		if !ok || actor.ID == "" {
			next.ServeHTTP(w, r)
			return
		}

		result, err := s.RateLimitStore.IncrementAndCheck(
			r.Context(),
			actor.ID,
			defaultRateLimitMax,
			defaultRateLimitWindow,
		)
		if err != nil {
			// On store errors, fail open: a rate limit store outage must not
			// block all API traffic.
			s.Logger.Error("rate limit store error",
				slog.String("actor_id", actor.ID),
				slog.String("error", err.Error()),
			)
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, defaultRateLimitMax, result)

		if !result.Allowed {
			s.Logger.Warn("rate limit exceeded",
				slog.String("actor_id", actor.ID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			resp := APIErrorResponse{
				Error: ErrorDetail{
					Code:      string(types.ErrCodeRateLimit),
					Message:   "Rate limit exceeded. Please retry after the reset time.",
					RequestID: types.GetRequestID(r.Context()),
				},
			}
			JSON(w, r, http.StatusTooManyRequests, resp)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// setRateLimitHeaders writes the standard X-RateLimit-* headers to the response.
func setRateLimitHeaders(w http.ResponseWriter, limit int, result RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
