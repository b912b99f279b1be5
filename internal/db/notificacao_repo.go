package db

import (
	"context"

	"fletoads/internal/types"
)

// NotificacaoRepository provides data access for the notificacoes table.
type NotificacaoRepository struct {
	db DBTX
}

// NewNotificacaoRepository creates a new NotificacaoRepository backed by the
// given database connection (pool or transaction).
func NewNotificacaoRepository(db DBTX) *NotificacaoRepository {
	return &NotificacaoRepository{db: db}
}

// Create inserts a new in-app notification.
func (r *NotificacaoRepository) Create(ctx context.Context, n *types.Notificacao) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO notificacoes (id, usuario_id, titulo, mensagem, lida, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID,
		n.UsuarioID,
		n.Titulo,
		n.Mensagem,
		n.Lida,
		n.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create notificacao", err)
	}
	return nil
}

// ListByUsuario retrieves the user's notifications, newest first.
func (r *NotificacaoRepository) ListByUsuario(ctx context.Context, userID string, params types.ListParams) ([]types.Notificacao, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, usuario_id, titulo, mensagem, lida, created_at
		 FROM notificacoes
		 WHERE usuario_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID,
		params.Limit,
		params.Offset,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list notificacoes", err)
	}
	defer rows.Close()

	var notificacoes []types.Notificacao
	for rows.Next() {
		var n types.Notificacao
		if err := rows.Scan(&n.ID, &n.UsuarioID, &n.Titulo, &n.Mensagem, &n.Lida, &n.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan notificacao row", err)
		}
		notificacoes = append(notificacoes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating notificacao rows", err)
	}
	return notificacoes, nil
}

// MarkRead marks a single notification as read, scoped to the owner.
func (r *NotificacaoRepository) MarkRead(ctx context.Context, id string, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notificacoes SET lida = true WHERE id = $1 AND usuario_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark notificacao read", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundNotif, "notificacao not found", nil)
	}
	return nil
}
