package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fletoads/internal/types"
)

// PanfletoRepository provides data access for the panfletos table.
type PanfletoRepository struct {
	db TxDB
}

// NewPanfletoRepository creates a new PanfletoRepository backed by the given
// database connection.
func NewPanfletoRepository(db TxDB) *PanfletoRepository {
	return &PanfletoRepository{db: db}
}

const panfletoColumns = `p.id, p.usuario_id, p.loja_id, p.titulo, p.descricao, p.imagem_url,
	p.categoria, p.preco, p.produto_ids, p.data_inicio, p.data_fim, p.ativo,
	p.created_at, p.updated_at, p.deleted_at`

func scanPanfleto(row pgx.Row) (*types.Panfleto, error) {
	var p types.Panfleto
	var (
		descricao *string
		imagemURL *string
		categoria *string
	)
	err := row.Scan(
		&p.ID,
		&p.UsuarioID,
		&p.LojaID,
		&p.Titulo,
		&descricao,
		&imagemURL,
		&categoria,
		&p.Preco,
		&p.ProdutoIDs,
		&p.DataInicio,
		&p.DataFim,
		&p.Ativo,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if descricao != nil {
		p.Descricao = *descricao
	}
	if imagemURL != nil {
		p.ImagemURL = *imagemURL
	}
	if categoria != nil {
		p.Categoria = *categoria
	}
	return &p, nil
}

// CreateWithinLimit inserts a new panfleto only if the owner's count of live
// panfletos is still below the plan ceiling. The count and the insert run in
// a transaction holding the owner's advisory lock, so two concurrent creates
// cannot both slip under the ceiling. A maxAtivos of zero or less means the
// plan is unlimited and the insert is unconditional.
//
// Returns ErrCodeLimitPlanExceeded when the ceiling has been reached.
func (r *PanfletoRepository) CreateWithinLimit(ctx context.Context, p *types.Panfleto, maxAtivos int64) error {
	const insertColumns = `id, usuario_id, loja_id, titulo, descricao, imagem_url,
		categoria, preco, produto_ids, data_inicio, data_fim, ativo, created_at, updated_at`

	args := []any{
		p.ID,
		p.UsuarioID,
		p.LojaID,
		p.Titulo,
		nilIfEmpty(p.Descricao),
		nilIfEmpty(p.ImagemURL),
		nilIfEmpty(p.Categoria),
		p.Preco,
		p.ProdutoIDs,
		p.DataInicio,
		p.DataFim,
		p.Ativo,
		p.CreatedAt,
		p.UpdatedAt,
	}

	if maxAtivos <= 0 {
		_, err := r.db.Exec(ctx,
			`INSERT INTO panfletos (`+insertColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			args...,
		)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to create panfleto", err)
		}
		return nil
	}

	tag, err := execUnderOwnerLock(ctx, r.db, p.UsuarioID,
		`INSERT INTO panfletos (`+insertColumns+`)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		 WHERE (SELECT COUNT(*) FROM panfletos
		        WHERE usuario_id = $2 AND ativo = true AND deleted_at IS NULL) < $15`,
		append(args, maxAtivos)...,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create panfleto", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeLimitPlanExceeded, "panfleto limit reached for plan", nil)
	}
	return nil
}

// GetByID retrieves a panfleto owned by the given user.
func (r *PanfletoRepository) GetByID(ctx context.Context, id string, userID string) (*types.Panfleto, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+panfletoColumns+`
		 FROM panfletos p
		 WHERE p.id = $1 AND p.usuario_id = $2 AND p.deleted_at IS NULL`,
		id,
		userID,
	)

	p, err := scanPanfleto(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPanfleto, "panfleto not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve panfleto", err)
	}
	return p, nil
}

// ListByUsuario retrieves the user's panfletos ordered by creation time,
// newest first.
func (r *PanfletoRepository) ListByUsuario(ctx context.Context, userID string, params types.ListParams) ([]types.Panfleto, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+panfletoColumns+`
		 FROM panfletos p
		 WHERE p.usuario_id = $1 AND p.deleted_at IS NULL
		 ORDER BY p.created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID,
		params.Limit,
		params.Offset,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list panfletos", err)
	}
	defer rows.Close()

	var panfletos []types.Panfleto
	for rows.Next() {
		p, err := scanPanfleto(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan panfleto row", err)
		}
		panfletos = append(panfletos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating panfleto rows", err)
	}
	return panfletos, nil
}

// ListAtivosByLoja retrieves a loja's live panfletos for the public vitrine.
func (r *PanfletoRepository) ListAtivosByLoja(ctx context.Context, lojaID string) ([]types.Panfleto, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+panfletoColumns+`
		 FROM panfletos p
		 WHERE p.loja_id = $1 AND p.ativo = true AND p.deleted_at IS NULL
		 ORDER BY p.created_at DESC`,
		lojaID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list panfletos", err)
	}
	defer rows.Close()

	var panfletos []types.Panfleto
	for rows.Next() {
		p, err := scanPanfleto(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan panfleto row", err)
		}
		panfletos = append(panfletos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating panfleto rows", err)
	}
	return panfletos, nil
}

// Update modifies a panfleto's mutable fields, scoped to the owner.
func (r *PanfletoRepository) Update(ctx context.Context, p *types.Panfleto) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE panfletos
		 SET titulo = $1, descricao = $2, imagem_url = $3, categoria = $4, preco = $5,
		     produto_ids = $6, data_inicio = $7, data_fim = $8, ativo = $9, updated_at = NOW()
		 WHERE id = $10 AND usuario_id = $11 AND deleted_at IS NULL`,
		p.Titulo,
		nilIfEmpty(p.Descricao),
		nilIfEmpty(p.ImagemURL),
		nilIfEmpty(p.Categoria),
		p.Preco,
		p.ProdutoIDs,
		p.DataInicio,
		p.DataFim,
		p.Ativo,
		p.ID,
		p.UsuarioID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update panfleto", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPanfleto, "panfleto not found", nil)
	}
	return nil
}

// Delete soft-deletes a panfleto and marks it inactive so it leaves the
// quota count immediately.
func (r *PanfletoRepository) Delete(ctx context.Context, id string, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE panfletos SET deleted_at = NOW(), ativo = false
		 WHERE id = $1 AND usuario_id = $2 AND deleted_at IS NULL`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete panfleto", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPanfleto, "panfleto not found", nil)
	}
	return nil
}
