package repository

import (
	"context"
	"sentinel/internal/models"

	"github.com/google/uuid"
)

// BackupCodeRepository defines the interface for backup code persistence
type BackupCodeRepository interface {
	// Replace removes the user's existing codes and stores the new hashed
	// set in a single transaction.
	Replace(ctx context.Context, userID uuid.UUID, codeHashes []string) error
	ListUnused(ctx context.Context, userID uuid.UUID) ([]models.BackupCode, error)
	// MarkUsed consumes the code with a conditional update. It returns
	// true only for the caller whose update actually flipped the used
	// flag; a concurrent consumer of the same code sees false.
	MarkUsed(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
}
