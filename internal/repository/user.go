package repository

import (
	"context"
	"sentinel/internal/models"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user account persistence
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, lastLoginAt time.Time) error
	// IncrementFailedAttempts bumps the failed-login counter server-side
	// and returns the new count. The increment is atomic per row; callers
	// decide whether the count warrants a lockout.
	IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// Lock sets the lockout expiry on the account.
	Lock(ctx context.Context, id uuid.UUID, until time.Time) error
	// ResetFailedAttempts clears the counter and the lockout expiry.
	ResetFailedAttempts(ctx context.Context, id uuid.UUID) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	SetVerificationToken(ctx context.Context, id uuid.UUID, token *string) error
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret *string) error
	SetTwoFactorEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}
