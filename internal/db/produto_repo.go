package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fletoads/internal/types"
)

// ProdutoRepository provides data access for the produtos table.
type ProdutoRepository struct {
	db TxDB
}

// NewProdutoRepository creates a new ProdutoRepository backed by the given
// database connection.
func NewProdutoRepository(db TxDB) *ProdutoRepository {
	return &ProdutoRepository{db: db}
}

const produtoColumns = `p.id, p.usuario_id, p.loja_id, p.nome, p.descricao, p.preco,
	p.imagem_url, p.categoria, p.ativo, p.created_at, p.updated_at, p.deleted_at`

func scanProduto(row pgx.Row) (*types.Produto, error) {
	var p types.Produto
	var (
		descricao *string
		imagemURL *string
		categoria *string
	)
	err := row.Scan(
		&p.ID,
		&p.UsuarioID,
		&p.LojaID,
		&p.Nome,
		&descricao,
		&p.Preco,
		&imagemURL,
		&categoria,
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

// CreateWithinLimit inserts a new produto only if the owner's count of live
// produtos is still below the plan ceiling, serialized per owner via the
// advisory-lock transaction. A maxProdutos of zero or less means unlimited.
func (r *ProdutoRepository) CreateWithinLimit(ctx context.Context, p *types.Produto, maxProdutos int64) error {
	const insertColumns = `id, usuario_id, loja_id, nome, descricao, preco,
		imagem_url, categoria, ativo, created_at, updated_at`

	args := []any{
		p.ID,
		p.UsuarioID,
		p.LojaID,
		p.Nome,
		nilIfEmpty(p.Descricao),
		p.Preco,
		nilIfEmpty(p.ImagemURL),
		nilIfEmpty(p.Categoria),
		p.Ativo,
		p.CreatedAt,
		p.UpdatedAt,
	}

	if maxProdutos <= 0 {
		_, err := r.db.Exec(ctx,
			`INSERT INTO produtos (`+insertColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			args...,
		)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to create produto", err)
		}
		return nil
	}

	tag, err := execUnderOwnerLock(ctx, r.db, p.UsuarioID,
		`INSERT INTO produtos (`+insertColumns+`)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		 WHERE (SELECT COUNT(*) FROM produtos
		        WHERE usuario_id = $2 AND deleted_at IS NULL) < $12`,
		append(args, maxProdutos)...,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create produto", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeLimitPlanExceeded, "produto limit reached for plan", nil)
	}
	return nil
}

// GetByID retrieves a produto owned by the given user.
func (r *ProdutoRepository) GetByID(ctx context.Context, id string, userID string) (*types.Produto, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+produtoColumns+`
		 FROM produtos p
		 WHERE p.id = $1 AND p.usuario_id = $2 AND p.deleted_at IS NULL`,
		id,
		userID,
	)

	p, err := scanProduto(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundProduto, "produto not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve produto", err)
	}
	return p, nil
}

// ListByUsuario retrieves the user's produtos, newest first.
func (r *ProdutoRepository) ListByUsuario(ctx context.Context, userID string, params types.ListParams) ([]types.Produto, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+produtoColumns+`
		 FROM produtos p
		 WHERE p.usuario_id = $1 AND p.deleted_at IS NULL
		 ORDER BY p.created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID,
		params.Limit,
		params.Offset,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list produtos", err)
	}
	defer rows.Close()

	var produtos []types.Produto
	for rows.Next() {
		p, err := scanProduto(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan produto row", err)
		}
		produtos = append(produtos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating produto rows", err)
	}
	return produtos, nil
}

// Update modifies a produto's mutable fields, scoped to the owner.
func (r *ProdutoRepository) Update(ctx context.Context, p *types.Produto) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE produtos
		 SET nome = $1, descricao = $2, preco = $3, imagem_url = $4, categoria = $5,
		     ativo = $6, updated_at = NOW()
		 WHERE id = $7 AND usuario_id = $8 AND deleted_at IS NULL`,
		p.Nome,
		nilIfEmpty(p.Descricao),
		p.Preco,
		nilIfEmpty(p.ImagemURL),
		nilIfEmpty(p.Categoria),
		p.Ativo,
		p.ID,
		p.UsuarioID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update produto", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProduto, "produto not found", nil)
	}
	return nil
}

// Delete soft-deletes a produto.
func (r *ProdutoRepository) Delete(ctx context.Context, id string, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE produtos SET deleted_at = NOW(), ativo = false
		 WHERE id = $1 AND usuario_id = $2 AND deleted_at IS NULL`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete produto", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProduto, "produto not found", nil)
	}
	return nil
}
