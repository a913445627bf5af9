package repository

import (
	"context"
	"sentinel/internal/models"
	"time"
)

// LoginAttemptRepository defines the interface for the login audit trail.
// Records are append-only; lockout state lives on the user row.
type LoginAttemptRepository interface {
	Create(ctx context.Context, attempt *models.LoginAttempt) error
	// DeleteOlderThan prunes audit records past the retention window and
	// returns the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
