package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown email, wrong password and any
	// other case that must not reveal which check failed
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates a temporary lockout after repeated failures
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrEmailNotVerified indicates the account email was never confirmed
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrInvalidTwoFactor indicates the supplied TOTP or backup code is wrong
	ErrInvalidTwoFactor = errors.New("invalid 2FA code")
	// ErrTwoFactorNotConfigured indicates 2FA setup was never completed
	ErrTwoFactorNotConfigured = errors.New("2FA not configured")
	// ErrEmailExists indicates a registration conflict
	ErrEmailExists = errors.New("email already registered")
	// ErrRegistrationClosed indicates new signups are disabled
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrWeakPassword indicates the password failed the strength policy;
	// the wrapped message names the first failing rule
	ErrWeakPassword = errors.New("weak password")
	// ErrSamePassword indicates the new password equals the current one
	ErrSamePassword = errors.New("new password must be different from the current one")
	// ErrInvalidSession indicates a refresh token with no usable session
	ErrInvalidSession = errors.New("invalid or expired session")
	// ErrSessionNotFound indicates the named session does not exist or
	// does not belong to the caller
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidVerification indicates a bad or already-consumed verification token
	ErrInvalidVerification = errors.New("invalid verification token")
	// ErrVerificationExpired indicates the verification window has passed
	ErrVerificationExpired = errors.New("verification token expired")
)
