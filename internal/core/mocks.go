package core

import (
	"context"
	"sync"
	"time"

	"fletoads/internal/types"
)

// --- MockAuthenticator ---

// MockAuthenticator implements the Authenticator interface for testing.
// It allows injecting a predefined Actor and CSRF token for any token, or
// returning a fixed error to simulate authentication failures.
type MockAuthenticator struct {
	// Actor is the predefined Actor returned on successful token resolution.
	// If nil and Err is also nil, ResolveToken returns (nil, "", nil).
	Actor *types.Actor

	// CSRFToken is the session CSRF token returned alongside the Actor.
	CSRFToken string

	// Err is the error returned by ResolveToken. When set, Actor is ignored.
	Err error

	// ResolveTokenFunc optionally overrides the default behavior, taking
	// precedence over Actor, CSRFToken, and Err.
	ResolveTokenFunc func(ctx context.Context, token string) (*types.Actor, string, error)

	mu sync.Mutex

	// Calls records every token passed to ResolveToken for assertions.
	Calls []string
}

func (m *MockAuthenticator) ResolveToken(ctx context.Context, token string) (*types.Actor, string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, token)
	m.mu.Unlock()

	if m.ResolveTokenFunc != nil {
		return m.ResolveTokenFunc(ctx, token)
	}
	if m.Err != nil {
		return nil, "", m.Err
	}
	return m.Actor, m.CSRFToken, nil
}

// --- MockRateLimitStore ---

// MockRateLimitStore implements the RateLimitStore interface for testing.
type MockRateLimitStore struct {
	// Result is the predefined RateLimitResult returned by IncrementAndCheck.
	Result RateLimitResult

	// Err is the error returned by IncrementAndCheck. Result is still
	// returned alongside the error.
	Err error

	// IncrementAndCheckFunc optionally overrides the default behavior.
	IncrementAndCheckFunc func(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)

	mu sync.Mutex

	// Calls records every invocation for assertions.
	Calls []RateLimitCall
}

// RateLimitCall records the arguments of a single IncrementAndCheck invocation.
type RateLimitCall struct {
	Key    string
	Limit  int
	Window time.Duration
}

func (m *MockRateLimitStore) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, RateLimitCall{Key: key, Limit: limit, Window: window})
	m.mu.Unlock()

	if m.IncrementAndCheckFunc != nil {
		return m.IncrementAndCheckFunc(ctx, key, limit, window)
	}
	return m.Result, m.Err
}

// --- MockSecurityService ---

// MockSecurityService implements the types.SecurityService interface for
// testing. It allows injecting predefined responses for IP and identifier
// blocking checks, and records all calls for assertion.
type MockSecurityService struct {
	// BlockedIPs maps IP addresses to their blocked status. IPs absent from
	// the map are not blocked.
	BlockedIPs map[string]bool

	// BlockedIdentifiers maps identifiers (e.g., emails) to their blocked
	// status. Identifiers absent from the map are not blocked.
	BlockedIdentifiers map[string]bool

	// RecordAttemptErr is the error returned by RecordAttempt.
	RecordAttemptErr error

	// RecordAttemptFunc optionally overrides RecordAttempt.
	RecordAttemptFunc func(ctx context.Context, eventType, identifier, ip string, success bool, reason string) error

	mu sync.Mutex

	// RecordedAttempts stores all calls to RecordAttempt for assertions.
	RecordedAttempts []SecurityAttemptCall
}

// SecurityAttemptCall records the arguments of a single RecordAttempt invocation.
type SecurityAttemptCall struct {
	EventType  string
	Identifier string
	IP         string
	Success    bool
	Reason     string
}

func (m *MockSecurityService) RecordAttempt(ctx context.Context, eventType, identifier, ip string, success bool, reason string) error {
	m.mu.Lock()
	m.RecordedAttempts = append(m.RecordedAttempts, SecurityAttemptCall{
		EventType:  eventType,
		Identifier: identifier,
		IP:         ip,
		Success:    success,
		Reason:     reason,
	})
	m.mu.Unlock()

	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, eventType, identifier, ip, success, reason)
	}
	return m.RecordAttemptErr
}

func (m *MockSecurityService) IsIPBlocked(_ context.Context, ip string) bool {
	if m.BlockedIPs == nil {
		return false
	}
	return m.BlockedIPs[ip]
}

func (m *MockSecurityService) IsIdentifierBlocked(_ context.Context, identifier string) bool {
	if m.BlockedIdentifiers == nil {
		return false
	}
	return m.BlockedIdentifiers[identifier]
}

// Compile-time interface assertions.
var (
	_ Authenticator         = (*MockAuthenticator)(nil)
	_ RateLimitStore        = (*MockRateLimitStore)(nil)
	_ types.SecurityService = (*MockSecurityService)(nil)
)
