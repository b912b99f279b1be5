package core

import (
	"context"
	"time"

	"fletoads/internal/types"
)

// Authenticator decouples the HTTP layer from the session store, allowing
// for easy mocking in tests.
type Authenticator interface {
	// ResolveToken resolves a session token ("sess_" prefixed) to the Actor
	// performing the request, along with the CSRF token bound to the session.
	//
	// Distinct error codes:
	//   - ErrCodeAuthTokenInvalid if the token is malformed or not found.
	//   - ErrCodeAuthSessionExpired if the session exists but has expired.
	ResolveToken(ctx context.Context, token string) (*types.Actor, string, error)
}

// RateLimitStore abstracts the backing store for rate limiting.
// Production uses Redis atomic increments; dev/test uses in-memory or none.
type RateLimitStore interface {
	// IncrementAndCheck atomically increments the rate limit counter for the
	// given key and checks if the limit has been exceeded within the window.
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// RateLimitResult contains the outcome of a rate limit check.
type RateLimitResult struct {
	// Allowed indicates whether the request is within the rate limit.
	Allowed bool
	// Remaining is the number of requests remaining in the current window.
	Remaining int
	// ResetAt is the time when the current rate limit window resets.
	ResetAt time.Time
}
