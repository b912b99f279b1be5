package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// SecurityService provides unified security event tracking and brute-force blocking.
type SecurityService interface {
	// RecordAttempt logs a security event (login, api_auth, etc.) for tracking.
	RecordAttempt(ctx context.Context, eventType string, identifier string, ip string, success bool, reason string) error

	// IsIPBlocked checks if an IP address should be blocked based on recent failed attempts.
	IsIPBlocked(ctx context.Context, ip string) bool

	// IsIdentifierBlocked checks if a specific identifier (e.g., email) should be blocked.
	IsIdentifierBlocked(ctx context.Context, identifier string) bool
}

// Logger defines the structured logging interface used throughout the platform.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}
