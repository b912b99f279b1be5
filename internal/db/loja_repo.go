package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fletoads/internal/types"
)

// LojaRepository provides data access for the lojas table.
type LojaRepository struct {
	db DBTX
}

// NewLojaRepository creates a new LojaRepository backed by the given
// database connection (pool or transaction).
func NewLojaRepository(db DBTX) *LojaRepository {
	return &LojaRepository{db: db}
}

const lojaColumns = `l.id, l.usuario_id, l.nome, l.slug, l.descricao, l.telefone,
	l.endereco, l.branding, l.ativo, l.created_at, l.updated_at, l.deleted_at`

func scanLoja(row pgx.Row) (*types.Loja, error) {
	var l types.Loja
	var (
		descricao *string
		telefone  *string
	)
	err := row.Scan(
		&l.ID,
		&l.UsuarioID,
		&l.Nome,
		&l.Slug,
		&descricao,
		&telefone,
		&l.Endereco,
		&l.Branding,
		&l.Ativo,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if descricao != nil {
		l.Descricao = *descricao
	}
	if telefone != nil {
		l.Telefone = *telefone
	}
	return &l, nil
}

// GetByUsuario retrieves the loja owned by the given user.
func (r *LojaRepository) GetByUsuario(ctx context.Context, userID string) (*types.Loja, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+lojaColumns+`
		 FROM lojas l
		 WHERE l.usuario_id = $1 AND l.deleted_at IS NULL`,
		userID,
	)

	l, err := scanLoja(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundLoja, "loja not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve loja", err)
	}
	return l, nil
}

// GetByRef retrieves an active loja by a caller-supplied reference, which may
// be an object identifier, a slug, or a display name. Used by the public
// vitrine lookup.
func (r *LojaRepository) GetByRef(ctx context.Context, ref string) (*types.Loja, error) {
	filter := NewLookupFilter(ref)
	query := `SELECT ` + lojaColumns + `
		 FROM lojas l
		 WHERE l.ativo = true AND l.deleted_at IS NULL AND ` + filter.Clause(1)

	row := r.db.QueryRow(ctx, query, filter.Args()...)

	l, err := scanLoja(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundLoja, "loja not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve loja", err)
	}
	return l, nil
}

// Create inserts a new loja. Returns ErrCodeConflictSlug when the slug is
// already taken.
func (r *LojaRepository) Create(ctx context.Context, l *types.Loja) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO lojas (id, usuario_id, nome, slug, descricao, telefone,
		 endereco, branding, ativo, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		l.ID,
		l.UsuarioID,
		l.Nome,
		l.Slug,
		nilIfEmpty(l.Descricao),
		nilIfEmpty(l.Telefone),
		l.Endereco,
		l.Branding,
		l.Ativo,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictSlug, "loja slug already exists", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create loja", err)
	}
	return nil
}

// Update modifies the loja's mutable fields.
func (r *LojaRepository) Update(ctx context.Context, l *types.Loja) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE lojas
		 SET nome = $1, descricao = $2, telefone = $3, endereco = $4, branding = $5,
		     ativo = $6, updated_at = NOW()
		 WHERE id = $7 AND usuario_id = $8 AND deleted_at IS NULL`,
		l.Nome,
		nilIfEmpty(l.Descricao),
		nilIfEmpty(l.Telefone),
		l.Endereco,
		l.Branding,
		l.Ativo,
		l.ID,
		l.UsuarioID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update loja", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundLoja, "loja not found", nil)
	}
	return nil
}
