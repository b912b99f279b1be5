package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fletoads/internal/types"
)

// PlanoRepository provides data access for the planos table.
// Plans are reference data: seeded at deploy time and edited only through
// the admin endpoints.
type PlanoRepository struct {
	db DBTX
}

// NewPlanoRepository creates a new PlanoRepository backed by the given
// database connection (pool or transaction).
func NewPlanoRepository(db DBTX) *PlanoRepository {
	return &PlanoRepository{db: db}
}

// planoColumns defines the standard set of columns selected for plan queries.
// Used consistently across all query methods to avoid column drift.
const planoColumns = `p.id, p.nome, p.slug, p.preco, p.ativo, p.limites,
	p.stripe_price_id, p.created_at, p.updated_at`

// scanPlano scans a single plan row into a types.Plano struct.
// The columns must match the order defined in planoColumns.
func scanPlano(row pgx.Row) (*types.Plano, error) {
	var p types.Plano
	var stripePriceID *string
	err := row.Scan(
		&p.ID,
		&p.Nome,
		&p.Slug,
		&p.Preco,
		&p.Ativo,
		&p.Limites,
		&stripePriceID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if stripePriceID != nil {
		p.StripePriceID = *stripePriceID
	}
	return &p, nil
}

// GetBySlug retrieves a plan by its slug.
// Returns ErrCodeNotFoundPlano if no active plan carries the slug.
func (r *PlanoRepository) GetBySlug(ctx context.Context, slug types.PlanTier) (*types.Plano, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+planoColumns+`
		 FROM planos p
		 WHERE p.slug = $1`,
		slug,
	)

	p, err := scanPlano(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPlano, "plano not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve plano", err)
	}
	return p, nil
}

// List retrieves all active plans ordered by price ascending.
func (r *PlanoRepository) List(ctx context.Context) ([]types.Plano, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+planoColumns+`
		 FROM planos p
		 WHERE p.ativo = true
		 ORDER BY p.preco ASC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list planos", err)
	}
	defer rows.Close()

	var planos []types.Plano
	for rows.Next() {
		p, err := scanPlano(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan plano row", err)
		}
		planos = append(planos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating plano rows", err)
	}
	return planos, nil
}

// Create inserts a new plan. Returns ErrCodeConflictSlug when the slug is
// already taken.
func (r *PlanoRepository) Create(ctx context.Context, p *types.Plano) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO planos (id, nome, slug, preco, ativo, limites, stripe_price_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID,
		p.Nome,
		p.Slug,
		p.Preco,
		p.Ativo,
		p.Limites,
		nilIfEmpty(p.StripePriceID),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictSlug, "plano slug already exists", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create plano", err)
	}
	return nil
}

// Update modifies an existing plan's mutable fields.
func (r *PlanoRepository) Update(ctx context.Context, p *types.Plano) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE planos
		 SET nome = $1, preco = $2, ativo = $3, limites = $4, stripe_price_id = $5, updated_at = NOW()
		 WHERE id = $6`,
		p.Nome,
		p.Preco,
		p.Ativo,
		p.Limites,
		nilIfEmpty(p.StripePriceID),
		p.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update plano", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPlano, "plano not found", nil)
	}
	return nil
}

// SubscriberStats returns the number of active subscribers per plan.
// Plans with no subscribers are included with a zero count. Users whose plan
// slug matches no catalog row are not represented; the accounting layer
// treats those as free-tier users.
func (r *PlanoRepository) SubscriberStats(ctx context.Context) ([]types.PlanoStats, error) {
	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.slug, p.nome, COUNT(u.id)
		 FROM planos p
		 LEFT JOIN usuarios u ON u.plano = p.slug AND u.deleted_at IS NULL
		 GROUP BY p.id, p.slug, p.nome, p.preco
		 ORDER BY p.preco ASC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query plano stats", err)
	}
	defer rows.Close()

	var stats []types.PlanoStats
	for rows.Next() {
		var s types.PlanoStats
		if err := rows.Scan(&s.PlanoID, &s.Slug, &s.Nome, &s.Assinantes); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan plano stats row", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating plano stats rows", err)
	}
	return stats, nil
}
