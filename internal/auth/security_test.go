package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fletoads/internal/types"
)

type mockSecurityRepo struct {
	mock.Mock
}

func (m *mockSecurityRepo) LogAttempt(ctx context.Context, event *types.SecurityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockSecurityRepo) CountRecentFailuresByIP(ctx context.Context, ip string, since time.Time) (int, error) {
	args := m.Called(ctx, ip, since)
	return args.Int(0), args.Error(1)
}

func (m *mockSecurityRepo) CountRecentFailuresByIdentifier(ctx context.Context, identifier string, since time.Time) (int, error) {
	args := m.Called(ctx, identifier, since)
	return args.Int(0), args.Error(1)
}

func newTestSecurityService(repo *mockSecurityRepo) types.SecurityService {
	return NewSecurityService(repo, DefaultSecurityConfig(), fixedClock{testNow}, discardLogger())
}

func TestRecordAttempt_LogsEvent(t *testing.T) {
	repo := new(mockSecurityRepo)
	svc := newTestSecurityService(repo)

	repo.On("LogAttempt", mock.Anything, mock.MatchedBy(func(e *types.SecurityEvent) bool {
		return e.EventType == "login" &&
			e.Identifier == "maria@example.com" &&
			e.IPAddress == "203.0.113.1" &&
			!e.Success &&
			e.FailureReason == "invalid_creds" &&
			e.AttemptedAt.Equal(testNow)
	})).Return(nil)

	err := svc.RecordAttempt(context.Background(), "login", "maria@example.com", "203.0.113.1", false, "invalid_creds")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestIsIdentifierBlocked_Thresholds(t *testing.T) {
	window := DefaultSecurityConfig().WindowDuration
	since := testNow.Add(-window)

	tests := []struct {
		name    string
		count   int
		blocked bool
	}{
		{"below threshold", 4, false},
		{"at threshold", 5, true},
		{"above threshold", 50, true},
		{"zero failures", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockSecurityRepo)
			svc := newTestSecurityService(repo)
			repo.On("CountRecentFailuresByIdentifier", mock.Anything, "maria@example.com", since).
				Return(tt.count, nil)

			assert.Equal(t, tt.blocked, svc.IsIdentifierBlocked(context.Background(), "maria@example.com"))
		})
	}
}

func TestIsIPBlocked_Thresholds(t *testing.T) {
	window := DefaultSecurityConfig().WindowDuration
	since := testNow.Add(-window)

	tests := []struct {
		name    string
		count   int
		blocked bool
	}{
		{"below threshold", 99, false},
		{"at threshold", 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockSecurityRepo)
			svc := newTestSecurityService(repo)
			repo.On("CountRecentFailuresByIP", mock.Anything, "203.0.113.1", since).
				Return(tt.count, nil)

			assert.Equal(t, tt.blocked, svc.IsIPBlocked(context.Background(), "203.0.113.1"))
		})
	}
}

func TestBlockChecks_FailOpenOnRepoError(t *testing.T) {
	repo := new(mockSecurityRepo)
	svc := newTestSecurityService(repo)

	repo.On("CountRecentFailuresByIP", mock.Anything, mock.Anything, mock.Anything).
		Return(0, assert.AnError)
	repo.On("CountRecentFailuresByIdentifier", mock.Anything, mock.Anything, mock.Anything).
		Return(0, assert.AnError)

	assert.False(t, svc.IsIPBlocked(context.Background(), "203.0.113.1"))
	assert.False(t, svc.IsIdentifierBlocked(context.Background(), "maria@example.com"))
}

func TestRecordAttempt_RepoErrorSurfaces(t *testing.T) {
	repo := new(mockSecurityRepo)
	svc := newTestSecurityService(repo)

	repo.On("LogAttempt", mock.Anything, mock.Anything).Return(assert.AnError)

	err := svc.RecordAttempt(context.Background(), "login", "x@y.z", "203.0.113.1", true, "")
	require.ErrorIs(t, err, assert.AnError)
}
