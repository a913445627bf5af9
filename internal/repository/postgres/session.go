package postgres

import (
	"context"
	"database/sql"
	"sentinel/internal/models"
	"sentinel/internal/repository"
	"time"

	"github.com/google/uuid"
)

const sessionColumns = `id, session_token, refresh_token, user_id, device_info, ip_address,
	       user_agent, active, revoked_at, expires_at, last_activity, created_at`

type sessionRepository struct {
	repository.BaseRepository
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &sessionRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (
			id, session_token, refresh_token, user_id, device_info,
			ip_address, user_agent, active, expires_at, last_activity
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	return r.DB().QueryRowContext(ctx, query,
		session.ID,
		session.SessionToken,
		session.RefreshToken,
		session.UserID,
		session.DeviceInfo,
		session.IPAddress,
		session.UserAgent,
		session.Active,
		session.ExpiresAt,
		session.LastActivity,
	).Scan(&session.CreatedAt)
}

func (r *sessionRepository) GetActiveByRefreshToken(ctx context.Context, refreshToken string, userID uuid.UUID) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE refresh_token = $1 AND user_id = $2 AND active = true AND expires_at > $3`

	return scanSession(r.DB().QueryRowContext(ctx, query, refreshToken, userID, time.Now()))
}

func (r *sessionRepository) ListActiveByUserID(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND active = true AND expires_at > $2
		ORDER BY last_activity DESC`

	rows, err := r.DB().QueryContext(ctx, query, userID, time.Now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		err := rows.Scan(
			&s.ID,
			&s.SessionToken,
			&s.RefreshToken,
			&s.UserID,
			&s.DeviceInfo,
			&s.IPAddress,
			&s.UserAgent,
			&s.Active,
			&s.RevokedAt,
			&s.ExpiresAt,
			&s.LastActivity,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionRepository) UpdateLastActivity(ctx context.Context, id uuid.UUID, lastActivity time.Time) error {
	query := `UPDATE sessions SET last_activity = $1 WHERE id = $2`
	_, err := r.DB().ExecContext(ctx, query, lastActivity, id)
	return err
}

func (r *sessionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	// Idempotent: revoking an already-revoked or unknown session succeeds.
	query := `
		UPDATE sessions
		SET active = false, revoked_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND active = true`

	_, err := r.DB().ExecContext(ctx, query, id)
	return err
}

func (r *sessionRepository) DeactivateByRefreshToken(ctx context.Context, refreshToken string, userID uuid.UUID) error {
	query := `
		UPDATE sessions
		SET active = false, revoked_at = CURRENT_TIMESTAMP
		WHERE refresh_token = $1 AND user_id = $2 AND active = true`

	_, err := r.DB().ExecContext(ctx, query, refreshToken, userID)
	return err
}

func (r *sessionRepository) DeactivateAllForUser(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE sessions
		SET active = false, revoked_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND active = true`

	_, err := r.DB().ExecContext(ctx, query, userID)
	return err
}

func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < $1`
	result, err := r.DB().ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanSession(row *sql.Row) (*models.Session, error) {
	session := &models.Session{}
	err := row.Scan(
		&session.ID,
		&session.SessionToken,
		&session.RefreshToken,
		&session.UserID,
		&session.DeviceInfo,
		&session.IPAddress,
		&session.UserAgent,
		&session.Active,
		&session.RevokedAt,
		&session.ExpiresAt,
		&session.LastActivity,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}
