package db

import (
	"context"

	"fletoads/internal/types"
)

// UsageRepository issues the per-resource count queries that feed the
// resource-limit accounting. Each count is scoped to a single owner; soft
// deleted rows never count, and panfletos additionally must be active.
type UsageRepository struct {
	db DBTX
}

// NewUsageRepository creates a new UsageRepository backed by the given
// database connection (pool or transaction).
func NewUsageRepository(db DBTX) *UsageRepository {
	return &UsageRepository{db: db}
}

// CountPanfletosAtivos returns the user's count of live, active panfletos.
func (r *UsageRepository) CountPanfletosAtivos(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM panfletos
		 WHERE usuario_id = $1 AND ativo = true AND deleted_at IS NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count panfletos", err)
	}
	return count, nil
}

// CountProdutos returns the user's count of live produtos.
func (r *UsageRepository) CountProdutos(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM produtos
		 WHERE usuario_id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count produtos", err)
	}
	return count, nil
}

// SumArmazenamento returns the user's total stored bytes across all uploads.
func (r *UsageRepository) SumArmazenamento(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(tamanho), 0) FROM arquivos WHERE usuario_id = $1`,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to sum armazenamento", err)
	}
	return total, nil
}

// CountIntegracoes returns the user's count of registered integrations.
func (r *UsageRepository) CountIntegracoes(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM integracoes WHERE usuario_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count integracoes", err)
	}
	return count, nil
}
