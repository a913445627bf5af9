package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account
type User struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Password            string     `json:"-"`
	EmailVerified       bool       `json:"email_verified"`
	VerificationToken   *string    `json:"-"`
	TOTPSecret          *string    `json:"-"`
	TwoFactorEnabled    bool       `json:"two_factor_enabled"`
	IsSuperuser         bool       `json:"is_superuser"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at"`
	PasswordChangedAt   *time.Time `json:"password_changed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsLocked returns true while the account lockout is in effect
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// ResetFailedAttempts clears the failed-login counter and lockout expiry
func (u *User) ResetFailedAttempts() {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
}
