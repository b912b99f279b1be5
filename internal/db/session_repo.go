package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fletoads/internal/types"
)

// SessionRepository provides data access for the sessoes table.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new SessionRepository backed by the given
// database connection (pool or transaction).
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, session *types.Sessao) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessoes (id, usuario_id, loja_id, csrf_token, ip_address, user_agent,
		 expires_at, last_activity_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		session.ID,
		session.UsuarioID,
		nilIfEmpty(session.LojaID),
		session.CSRFToken,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
		session.LastActivityAt,
		session.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create session", err)
	}
	return nil
}

// GetByID retrieves a session by its ID. Returns ErrCodeAuthTokenInvalid
// when no session exists, so callers surface a uniform 401.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*types.Sessao, error) {
	var s types.Sessao
	var lojaID *string
	err := r.db.QueryRow(ctx,
		`SELECT id, usuario_id, loja_id, csrf_token, ip_address, user_agent,
		 expires_at, last_activity_at, created_at
		 FROM sessoes WHERE id = $1`,
		sessionID,
	).Scan(
		&s.ID,
		&s.UsuarioID,
		&lojaID,
		&s.CSRFToken,
		&s.IPAddress,
		&s.UserAgent,
		&s.ExpiresAt,
		&s.LastActivityAt,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "session not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve session", err)
	}
	if lojaID != nil {
		s.LojaID = *lojaID
	}
	return &s, nil
}

// TouchActivity updates the session's last_activity_at to implement sliding
// activity tracking.
func (r *SessionRepository) TouchActivity(ctx context.Context, sessionID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE sessoes SET last_activity_at = NOW() WHERE id = $1`,
		sessionID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to touch session activity", err)
	}
	return nil
}

// DeleteByID removes a single session (logout).
func (r *SessionRepository) DeleteByID(ctx context.Context, sessionID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessoes WHERE id = $1`, sessionID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete session", err)
	}
	return nil
}

// DeleteByUser removes all sessions for a user (logout everywhere,
// account deletion).
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessoes WHERE usuario_id = $1`, userID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete user sessions", err)
	}
	return nil
}

// DeleteExpiredByUser lazily cleans up the user's expired sessions.
// Called opportunistically during login rather than by a scheduled job.
func (r *SessionRepository) DeleteExpiredByUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM sessoes WHERE usuario_id = $1 AND expires_at < NOW()`,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete expired sessions", err)
	}
	return nil
}
