// Package postgres implements the repository interfaces against PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"sentinel/internal/models"
	"sentinel/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const userColumns = `id, name, email, password, email_verified, verification_token,
	       totp_secret, two_factor_enabled, is_superuser, failed_login_attempts,
	       locked_until, last_login_at, password_changed_at, created_at, updated_at`

type userRepository struct {
	repository.BaseRepository
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	// password_changed_at is left to the column default so a fresh
	// account starts with its creation time
	query := `
		INSERT INTO users (id, name, email, password, email_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING password_changed_at, created_at, updated_at`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	err := r.DB().QueryRowContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Password,
		user.EmailVerified,
		user.VerificationToken,
	).Scan(&user.PasswordChangedAt, &user.CreatedAt, &user.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return repository.ErrEmailExists
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.DB().QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.DB().QueryRowContext(ctx, query, email))
}

func (r *userRepository) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE verification_token = $1 AND email_verified = false`
	return r.scanOne(r.DB().QueryRowContext(ctx, query, token))
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	query := `
		UPDATE users
		SET password = $1, password_changed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`

	return r.execExpectingRow(ctx, query, hashedPassword, id)
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, lastLoginAt time.Time) error {
	query := `
		UPDATE users
		SET last_login_at = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`

	_, err := r.DB().ExecContext(ctx, query, lastLoginAt, id)
	return err
}

func (r *userRepository) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	// Server-side increment keeps concurrent failures from clobbering each
	// other; the lockout decision happens in the service layer.
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING failed_login_attempts`

	var count int
	err := r.DB().QueryRowContext(ctx, query, id).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, repository.ErrUserNotFound
	}
	return count, err
}

func (r *userRepository) Lock(ctx context.Context, id uuid.UUID, until time.Time) error {
	query := `
		UPDATE users
		SET locked_until = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`

	return r.execExpectingRow(ctx, query, until, id)
}

func (r *userRepository) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	_, err := r.DB().ExecContext(ctx, query, id)
	return err
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET email_verified = true, verification_token = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	return r.execExpectingRow(ctx, query, id)
}

func (r *userRepository) SetVerificationToken(ctx context.Context, id uuid.UUID, token *string) error {
	query := `
		UPDATE users
		SET verification_token = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`

	return r.execExpectingRow(ctx, query, token, id)
}

func (r *userRepository) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret *string) error {
	query := `
		UPDATE users
		SET totp_secret = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`

	return r.execExpectingRow(ctx, query, secret, id)
}

func (r *userRepository) SetTwoFactorEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	query := `
		UPDATE users
		SET two_factor_enabled = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`

	return r.execExpectingRow(ctx, query, enabled, id)
}

func (r *userRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.EmailVerified,
		&user.VerificationToken,
		&user.TOTPSecret,
		&user.TwoFactorEnabled,
		&user.IsSuperuser,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.LastLoginAt,
		&user.PasswordChangedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) execExpectingRow(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}
