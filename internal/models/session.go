package models

import (
	"time"

	"github.com/google/uuid"
)

// Session represents a refresh-token-bound login session
type Session struct {
	ID           uuid.UUID  `json:"id"`
	SessionToken string     `json:"session_token"`
	RefreshToken string     `json:"-"`
	UserID       uuid.UUID  `json:"user_id"`
	DeviceInfo   *string    `json:"device_info"`
	IPAddress    *string    `json:"ip_address"`
	UserAgent    *string    `json:"user_agent"`
	Active       bool       `json:"active"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LastActivity time.Time  `json:"last_activity"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsUsable reports whether the session is active and unexpired
func (s *Session) IsUsable() bool {
	return s.Active && time.Now().Before(s.ExpiresAt)
}

// Deactivate flips the active flag and stamps the revocation time.
// The timestamp is part of the contract, not a storage-layer hook.
func (s *Session) Deactivate() {
	if !s.Active {
		return
	}
	s.Active = false
	now := time.Now()
	s.RevokedAt = &now
}

// SessionInfo describes an active session for the sessions listing
type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	DeviceInfo   *string   `json:"device_info"`
	IPAddress    *string   `json:"ip_address"`
	UserAgent    *string   `json:"user_agent"`
	LastActivity time.Time `json:"last_activity"`
	IsCurrent    bool      `json:"is_current"`
}
