package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fletoads/internal/types"
)

// IntegracaoRepository provides data access for the integracoes table.
// Only the registration of integrations is stored here; outbound delivery
// happens outside this service.
type IntegracaoRepository struct {
	db TxDB
}

// NewIntegracaoRepository creates a new IntegracaoRepository backed by the
// given database connection (pool or transaction).
func NewIntegracaoRepository(db TxDB) *IntegracaoRepository {
	return &IntegracaoRepository{db: db}
}

const integracaoColumns = `i.id, i.usuario_id, i.tipo, i.nome, i.config, i.ativo,
	i.created_at, i.updated_at`

func scanIntegracao(row pgx.Row) (*types.Integracao, error) {
	var i types.Integracao
	err := row.Scan(
		&i.ID,
		&i.UsuarioID,
		&i.Tipo,
		&i.Nome,
		&i.Config,
		&i.Ativo,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// CreateWithinLimit inserts a new integracao only if the owner's count of
// live integrations is still below the plan ceiling, serialized per owner
// via the advisory-lock transaction. A maxIntegracoes of zero or less means
// unlimited.
func (r *IntegracaoRepository) CreateWithinLimit(ctx context.Context, i *types.Integracao, maxIntegracoes int64) error {
	args := []any{
		i.ID,
		i.UsuarioID,
		i.Tipo,
		i.Nome,
		i.Config,
		i.Ativo,
		i.CreatedAt,
		i.UpdatedAt,
	}

	if maxIntegracoes <= 0 {
		_, err := r.db.Exec(ctx,
			`INSERT INTO integracoes (id, usuario_id, tipo, nome, config, ativo, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			args...,
		)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to create integracao", err)
		}
		return nil
	}

	tag, err := execUnderOwnerLock(ctx, r.db, i.UsuarioID,
		`INSERT INTO integracoes (id, usuario_id, tipo, nome, config, ativo, created_at, updated_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8
		 WHERE (SELECT COUNT(*) FROM integracoes WHERE usuario_id = $2) < $9`,
		append(args, maxIntegracoes)...,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create integracao", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeLimitPlanExceeded, "integracao limit reached for plan", nil)
	}
	return nil
}

// ListByUsuario retrieves the user's integracoes, newest first.
func (r *IntegracaoRepository) ListByUsuario(ctx context.Context, userID string) ([]types.Integracao, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+integracaoColumns+`
		 FROM integracoes i
		 WHERE i.usuario_id = $1
		 ORDER BY i.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list integracoes", err)
	}
	defer rows.Close()

	var integracoes []types.Integracao
	for rows.Next() {
		i, err := scanIntegracao(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan integracao row", err)
		}
		integracoes = append(integracoes, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating integracao rows", err)
	}
	return integracoes, nil
}

// GetByID retrieves an integracao owned by the given user.
func (r *IntegracaoRepository) GetByID(ctx context.Context, id string, userID string) (*types.Integracao, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+integracaoColumns+`
		 FROM integracoes i
		 WHERE i.id = $1 AND i.usuario_id = $2`,
		id,
		userID,
	)

	i, err := scanIntegracao(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundIntegracao, "integracao not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve integracao", err)
	}
	return i, nil
}

// Delete removes an integracao permanently.
func (r *IntegracaoRepository) Delete(ctx context.Context, id string, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM integracoes WHERE id = $1 AND usuario_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete integracao", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundIntegracao, "integracao not found", nil)
	}
	return nil
}
