package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fletoads/internal/types"
)

// UserRepository provides data access for the usuarios table.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository backed by the given
// database connection (pool or transaction).
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// userColumns defines the standard set of columns selected for user queries.
// Used consistently across all query methods to avoid column drift.
const userColumns = `u.id, u.email, u.nome, u.password_hash, u.role, u.status, u.plano,
	u.stripe_customer_id, u.email_verificado,
	u.created_at, u.updated_at, u.last_login_at, u.deleted_at`

// scanUser scans a single user row into a types.Usuario struct.
// The columns must match the order defined in userColumns.
// Uses nullable scan targets for columns that may be NULL in the database.
func scanUser(row pgx.Row) (*types.Usuario, error) {
	var u types.Usuario
	var (
		nome             *string
		passwordHash     *string
		plano            *string
		stripeCustomerID *string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&nome,
		&passwordHash,
		&u.Role,
		&u.Status,
		&plano,
		&stripeCustomerID,
		&u.EmailVerificado,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastLoginAt,
		&u.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if nome != nil {
		u.Nome = *nome
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	if plano != nil {
		u.Plano = types.PlanTier(*plano)
	}
	if stripeCustomerID != nil {
		u.StripeCustomerID = *stripeCustomerID
	}
	return &u, nil
}

// GetByID retrieves a user by ID. Returns ErrCodeNotFoundUser if no active
// user carries the ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*types.Usuario, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM usuarios u
		 WHERE u.id = $1 AND u.deleted_at IS NULL`,
		id,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "usuario not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve usuario", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*types.Usuario, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM usuarios u
		 WHERE u.email = $1 AND u.deleted_at IS NULL`,
		email,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "usuario not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve usuario by email", err)
	}
	return u, nil
}

// Create inserts a new user. Returns ErrCodeConflictEmail when the email is
// already registered.
func (r *UserRepository) Create(ctx context.Context, u *types.Usuario) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO usuarios (id, email, nome, password_hash, role, status, plano,
		 stripe_customer_id, email_verificado, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID,
		u.Email,
		nilIfEmpty(u.Nome),
		nilIfEmpty(u.PasswordHash),
		u.Role,
		u.Status,
		nilIfEmpty(string(u.Plano)),
		nilIfEmpty(u.StripeCustomerID),
		u.EmailVerificado,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictEmail, "email already registered", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create usuario", err)
	}
	return nil
}

// UpdatePlano updates the user's subscription plan reference. Called on
// subscription changes synced from the billing provider.
func (r *UserRepository) UpdatePlano(ctx context.Context, userID string, plano types.PlanTier) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE usuarios SET plano = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`,
		plano,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update plano", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "usuario not found", nil)
	}
	return nil
}

// GetBillingInfo returns the Stripe customer reference and email for a user.
// A user without a customer yet returns an empty customer ID and no error.
func (r *UserRepository) GetBillingInfo(ctx context.Context, userID string) (string, string, error) {
	var customerID *string
	var email string
	err := r.db.QueryRow(ctx,
		`SELECT stripe_customer_id, email FROM usuarios WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&customerID, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", types.NewAppError(types.ErrCodeNotFoundUser, "usuario not found", nil)
		}
		return "", "", types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve billing info", err)
	}
	if customerID == nil {
		return "", email, nil
	}
	return *customerID, email, nil
}

// UpdateStripeCustomerID persists the billing provider's customer reference.
func (r *UserRepository) UpdateStripeCustomerID(ctx context.Context, userID string, customerID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE usuarios SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`,
		customerID,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update stripe customer id", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "usuario not found", nil)
	}
	return nil
}

// GetByStripeCustomerID retrieves a user by their billing customer reference.
// Used by the webhook handler to resolve subscription events back to a user.
func (r *UserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*types.Usuario, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM usuarios u
		 WHERE u.stripe_customer_id = $1 AND u.deleted_at IS NULL`,
		customerID,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "usuario not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve usuario by customer id", err)
	}
	return u, nil
}

// UpdateLastLogin updates the last_login_at timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE usuarios SET last_login_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update last login", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "usuario not found", nil)
	}
	return nil
}

// Delete soft-deletes a user.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE usuarios SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete usuario", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "usuario not found", nil)
	}
	return nil
}
