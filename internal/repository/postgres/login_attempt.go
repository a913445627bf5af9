package postgres

import (
	"context"
	"database/sql"
	"sentinel/internal/models"
	"sentinel/internal/repository"
	"time"

	"github.com/google/uuid"
)

type loginAttemptRepository struct {
	repository.BaseRepository
}

// NewLoginAttemptRepository creates a new PostgreSQL login attempt repository
func NewLoginAttemptRepository(db *sql.DB) repository.LoginAttemptRepository {
	return &loginAttemptRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *loginAttemptRepository) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (id, email, ip_address, success, user_agent, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now()
	}

	_, err := r.DB().ExecContext(ctx, query,
		attempt.ID,
		attempt.Email,
		attempt.IPAddress,
		attempt.Success,
		attempt.UserAgent,
		attempt.AttemptedAt,
	)
	return err
}

func (r *loginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE attempted_at < $1`
	result, err := r.DB().ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
