package models

import (
	"time"

	"github.com/google/uuid"
)

// BackupCode is a single-use second-factor credential. The plaintext code
// is never stored; only its hash.
type BackupCode struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	CodeHash  string     `json:"-"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
