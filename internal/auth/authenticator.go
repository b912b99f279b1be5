package auth

import (
	"context"
	"log/slog"
	"strings"

	"fletoads/internal/types"
)

// sessionAuthenticator resolves raw session tokens to Actors for the HTTP
// middleware. It performs a live role check on every request: the user row
// is re-read so role or status changes take effect immediately, not at the
// next login.
type sessionAuthenticator struct {
	sessions *sessionService
	users    UserRepo
	logger   *slog.Logger
}

// NewSessionAuthenticator creates the production Authenticator implementation
// backed by the session service and user repository.
func NewSessionAuthenticator(sessions *sessionService, users UserRepo, logger *slog.Logger) *sessionAuthenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionAuthenticator{
		sessions: sessions,
		users:    users,
		logger:   logger,
	}
}

// ResolveToken validates the session token, loads the owning user, and
// returns the Actor plus the session's CSRF token.
func (a *sessionAuthenticator) ResolveToken(ctx context.Context, token string) (*types.Actor, string, error) {
	if !strings.HasPrefix(token, a.sessions.config.SessionIDPrefix) {
		return nil, "", types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid session token", nil)
	}

	session, err := a.sessions.ValidateSession(ctx, token)
	if err != nil {
		return nil, "", err
	}

	user, err := a.users.GetByID(ctx, session.UsuarioID)
	if err != nil {
		// A session whose user disappeared (soft delete) is invalid.
		return nil, "", types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid session token", err)
	}
	if user.Status != types.UserStatusActive {
		return nil, "", types.NewAppError(types.ErrCodeAuthAccountNotActive, "account not active", nil)
	}

	// Sliding activity marker, best effort.
	if err := a.sessions.TouchActivity(ctx, session.ID); err != nil {
		a.logger.Warn("failed to touch session activity",
			"session_id", session.ID,
			"error", err,
		)
	}

	actor := &types.Actor{
		ID:     user.ID,
		Type:   types.ActorTypeUser,
		Role:   user.Role,
		LojaID: session.LojaID,
	}
	return actor, session.CSRFToken, nil
}
