package repository

import (
	"context"
	"sentinel/internal/models"
	"time"

	"github.com/google/uuid"
)

// SessionRepository defines the interface for login session persistence
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	// GetActiveByRefreshToken returns the active, unexpired session bound
	// to the exact refresh token value and owning user, or
	// ErrSessionNotFound.
	GetActiveByRefreshToken(ctx context.Context, refreshToken string, userID uuid.UUID) (*models.Session, error)
	ListActiveByUserID(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
	UpdateLastActivity(ctx context.Context, id uuid.UUID, lastActivity time.Time) error
	// Deactivate flips the active flag and stamps revoked_at. Revoking an
	// already-inactive or unknown session is not an error.
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateByRefreshToken(ctx context.Context, refreshToken string, userID uuid.UUID) error
	DeactivateAllForUser(ctx context.Context, userID uuid.UUID) error
	// DeleteExpired removes sessions whose expiry has passed and returns
	// the number of rows removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
