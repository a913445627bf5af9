package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginAttempt is an append-only audit record of a login attempt.
// Lockout decisions live on the User row, not here.
type LoginAttempt struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	IPAddress   string    `json:"ip_address"`
	Success     bool      `json:"success"`
	UserAgent   *string   `json:"user_agent,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}
