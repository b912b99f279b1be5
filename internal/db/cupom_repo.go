package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fletoads/internal/types"
)

// CupomRepository provides data access for the cupons table.
type CupomRepository struct {
	db DBTX
}

// NewCupomRepository creates a new CupomRepository backed by the given
// database connection (pool or transaction).
func NewCupomRepository(db DBTX) *CupomRepository {
	return &CupomRepository{db: db}
}

const cupomColumns = `c.id, c.usuario_id, c.loja_id, c.codigo, c.tipo, c.valor,
	c.data_inicio, c.data_fim, c.ativo, c.created_at, c.updated_at`

func scanCupom(row pgx.Row) (*types.Cupom, error) {
	var c types.Cupom
	err := row.Scan(
		&c.ID,
		&c.UsuarioID,
		&c.LojaID,
		&c.Codigo,
		&c.Tipo,
		&c.Valor,
		&c.DataInicio,
		&c.DataFim,
		&c.Ativo,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new cupom. The coupon code is unique per loja;
// returns ErrCodeConflictSlug on a duplicate code.
func (r *CupomRepository) Create(ctx context.Context, c *types.Cupom) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO cupons (id, usuario_id, loja_id, codigo, tipo, valor,
		 data_inicio, data_fim, ativo, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID,
		c.UsuarioID,
		c.LojaID,
		c.Codigo,
		c.Tipo,
		c.Valor,
		c.DataInicio,
		c.DataFim,
		c.Ativo,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictSlug, "cupom code already exists for loja", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create cupom", err)
	}
	return nil
}

// GetByID retrieves a cupom owned by the given user.
func (r *CupomRepository) GetByID(ctx context.Context, id string, userID string) (*types.Cupom, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+cupomColumns+`
		 FROM cupons c
		 WHERE c.id = $1 AND c.usuario_id = $2`,
		id,
		userID,
	)

	c, err := scanCupom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundCupom, "cupom not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve cupom", err)
	}
	return c, nil
}

// ListByUsuario retrieves the user's cupons, newest first.
func (r *CupomRepository) ListByUsuario(ctx context.Context, userID string) ([]types.Cupom, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+cupomColumns+`
		 FROM cupons c
		 WHERE c.usuario_id = $1
		 ORDER BY c.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list cupons", err)
	}
	defer rows.Close()

	var cupons []types.Cupom
	for rows.Next() {
		c, err := scanCupom(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan cupom row", err)
		}
		cupons = append(cupons, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating cupom rows", err)
	}
	return cupons, nil
}

// Update modifies a cupom's mutable fields, scoped to the owner.
func (r *CupomRepository) Update(ctx context.Context, c *types.Cupom) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE cupons
		 SET tipo = $1, valor = $2, data_inicio = $3, data_fim = $4, ativo = $5, updated_at = NOW()
		 WHERE id = $6 AND usuario_id = $7`,
		c.Tipo,
		c.Valor,
		c.DataInicio,
		c.DataFim,
		c.Ativo,
		c.ID,
		c.UsuarioID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update cupom", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundCupom, "cupom not found", nil)
	}
	return nil
}

// Delete removes a cupom permanently.
func (r *CupomRepository) Delete(ctx context.Context, id string, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM cupons WHERE id = $1 AND usuario_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete cupom", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundCupom, "cupom not found", nil)
	}
	return nil
}
