package db

import (
	"context"

	"fletoads/internal/types"
)

// ArquivoRepository provides data access for the arquivos table, the upload
// metadata registry that feeds storage accounting. The file bytes themselves
// live in blob storage.
type ArquivoRepository struct {
	db TxDB
}

// NewArquivoRepository creates a new ArquivoRepository backed by the given
// database connection (pool or transaction).
func NewArquivoRepository(db TxDB) *ArquivoRepository {
	return &ArquivoRepository{db: db}
}

// CreateWithinLimit registers upload metadata only if the owner's total
// stored bytes plus the new file still fit under the plan ceiling,
// serialized per owner via the advisory-lock transaction. A maxBytes of
// zero or less means unlimited.
func (r *ArquivoRepository) CreateWithinLimit(ctx context.Context, a *types.Arquivo, maxBytes int64) error {
	args := []any{
		a.ID,
		a.UsuarioID,
		a.Nome,
		a.ContentType,
		a.Tamanho,
		a.URL,
		a.CreatedAt,
	}

	if maxBytes <= 0 {
		_, err := r.db.Exec(ctx,
			`INSERT INTO arquivos (id, usuario_id, nome, content_type, tamanho, url, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			args...,
		)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to create arquivo", err)
		}
		return nil
	}

	tag, err := execUnderOwnerLock(ctx, r.db, a.UsuarioID,
		`INSERT INTO arquivos (id, usuario_id, nome, content_type, tamanho, url, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7
		 WHERE (SELECT COALESCE(SUM(tamanho), 0) FROM arquivos WHERE usuario_id = $2) + $5 <= $8`,
		append(args, maxBytes)...,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create arquivo", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeLimitPlanExceeded, "storage limit reached for plan", nil)
	}
	return nil
}

// ListByUsuario retrieves the user's upload metadata, newest first.
func (r *ArquivoRepository) ListByUsuario(ctx context.Context, userID string) ([]types.Arquivo, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, usuario_id, nome, content_type, tamanho, url, created_at
		 FROM arquivos
		 WHERE usuario_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list arquivos", err)
	}
	defer rows.Close()

	var arquivos []types.Arquivo
	for rows.Next() {
		var a types.Arquivo
		if err := rows.Scan(&a.ID, &a.UsuarioID, &a.Nome, &a.ContentType, &a.Tamanho, &a.URL, &a.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan arquivo row", err)
		}
		arquivos = append(arquivos, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating arquivo rows", err)
	}
	return arquivos, nil
}

// Delete removes upload metadata, freeing the bytes from storage accounting.
func (r *ArquivoRepository) Delete(ctx context.Context, id string, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM arquivos WHERE id = $1 AND usuario_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete arquivo", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundArquivo, "arquivo not found", nil)
	}
	return nil
}
