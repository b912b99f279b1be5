package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fletoads/internal/types"
)

// bcryptCost is the bcrypt cost factor used for password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum accepted password length at registration.
const minPasswordLength = 8

// UserRepo defines the data access methods needed by AuthService for user
// operations.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*types.Usuario, error)
	GetByEmail(ctx context.Context, email string) (*types.Usuario, error)
	Create(ctx context.Context, u *types.Usuario) error
	UpdateLastLogin(ctx context.Context, userID string) error
}

// PasswordHasher abstracts bcrypt operations for testability.
type PasswordHasher interface {
	CompareHashAndPassword(hashedPassword, password string) error
	GenerateFromPassword(password string) (string, error)
}

// bcryptHasher is the production implementation of PasswordHasher.
type bcryptHasher struct{}

func (b *bcryptHasher) CompareHashAndPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func (b *bcryptHasher) GenerateFromPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CanonicalizeEmail normalizes email addresses for consistent DB lookups.
func CanonicalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthService implements registration, login, and logout flows.
type AuthService struct {
	userRepo   UserRepo
	sessionSvc *sessionService
	security   types.SecurityService
	hasher     PasswordHasher
	clock      types.Clock
	logger     *slog.Logger
}

// AuthServiceConfig holds the dependencies for creating an AuthService.
type AuthServiceConfig struct {
	UserRepo       UserRepo
	SessionService *sessionService
	Security       types.SecurityService
	Hasher         PasswordHasher
	Clock          types.Clock
	Logger         *slog.Logger
}

// NewAuthService creates a new AuthService. If Hasher is nil, the production
// bcryptHasher is used; nil Clock and Logger also get production defaults.
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = &bcryptHasher{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		userRepo:   cfg.UserRepo,
		sessionSvc: cfg.SessionService,
		security:   cfg.Security,
		hasher:     hasher,
		clock:      clock,
		logger:     logger,
	}
}

// Register creates a new user account on the free tier and opens a session.
//
//  1. Canonicalize the email and hash the password (bcrypt, cost 12).
//  2. Insert the user with role "user", status active, no plan (free tier).
//  3. Create a session so the user is logged in immediately.
//
// A duplicate email surfaces as conflict_email_exists (409).
func (s *AuthService) Register(ctx context.Context, nome, email, password, ip, userAgent string) (*types.Usuario, *types.Sessao, error) {
	email = CanonicalizeEmail(email)

	if len(password) < minPasswordLength {
		return nil, nil, types.NewAppError(types.ErrCodeValidationPassword,
			"password must be at least 8 characters", nil)
	}

	passwordHash, err := s.hasher.GenerateFromPassword(password)
	if err != nil {
		return nil, nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to hash password", err)
	}

	now := s.clock.Now()
	user := &types.Usuario{
		ID:           "user_" + uuid.New().String(),
		Email:        email,
		Nome:         nome,
		PasswordHash: passwordHash,
		Role:         types.RoleUser,
		Status:       types.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	session, _, err := s.sessionSvc.CreateSession(ctx, user.ID, "", ip, userAgent)
	if err != nil {
		return nil, nil, err
	}

	_ = s.security.RecordAttempt(ctx, "register", email, ip, true, "")

	s.logger.Info("user registered",
		"user_id", user.ID,
		"email", email,
	)

	return user, session, nil
}

// Login verifies credentials and creates a session.
//
//  1. Check brute force blocks for the email and IP.
//  2. Fetch user by email.
//  3. Verify password hash (bcrypt). Invalid records a failure and returns
//     auth_invalid_credentials.
//  4. Check user status is active.
//  5. Update last_login_at, create the session, and lazily delete expired
//     sessions for the user.
//  6. Record the success attempt.
//
// Enumeration protection: user-not-found and invalid-password both surface
// as the same generic auth_invalid_credentials error.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*types.Usuario, *types.Sessao, error) {
	email = CanonicalizeEmail(email)

	if s.security.IsIdentifierBlocked(ctx, email) || s.security.IsIPBlocked(ctx, ip) {
		return nil, nil, types.NewAppError(types.ErrCodeAuthLocked,
			"too many failed attempts, try again later", nil)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if appErr, ok := err.(*types.AppError); ok && appErr.Code == types.ErrCodeNotFoundUser {
			_ = s.security.RecordAttempt(ctx, "login", email, ip, false, "user_not_found")
			return nil, nil, types.NewAppError(types.ErrCodeAuthInvalidCreds, "invalid email or password", nil)
		}
		return nil, nil, err
	}

	if err := s.hasher.CompareHashAndPassword(user.PasswordHash, password); err != nil {
		_ = s.security.RecordAttempt(ctx, "login", email, ip, false, "invalid_creds")
		return nil, nil, types.NewAppError(types.ErrCodeAuthInvalidCreds, "invalid email or password", nil)
	}

	if user.Status != types.UserStatusActive {
		_ = s.security.RecordAttempt(ctx, "login", email, ip, false, "account_not_active")
		return nil, nil, types.NewAppError(types.ErrCodeAuthAccountNotActive, "account not active", nil)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, nil, err
	}

	session, _, err := s.sessionSvc.CreateSession(ctx, user.ID, "", ip, userAgent)
	if err != nil {
		return nil, nil, err
	}

	if err := s.sessionSvc.CleanExpiredSessions(ctx, user.ID); err != nil {
		// The next login attempt retries the cleanup.
		s.logger.Warn("failed to clean expired sessions during login",
			"user_id", user.ID,
			"error", err,
		)
	}

	_ = s.security.RecordAttempt(ctx, "login", email, ip, true, "")

	s.logger.Info("user logged in",
		"user_id", user.ID,
		"email", email,
	)

	return user, session, nil
}

// Logout invalidates the given session immediately.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessionSvc.InvalidateSession(ctx, sessionID)
}

// Sessions exposes the underlying session service for authenticator wiring.
func (s *AuthService) Sessions() *sessionService {
	return s.sessionSvc
}
