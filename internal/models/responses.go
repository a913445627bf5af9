package models

import "time"

// TokenResponse represents the response to a successful login or refresh.
// When RequiresTwoFactor is true the tokens are empty and ExpiresIn is 0;
// the client must repeat the login call with a second factor.
type TokenResponse struct {
	AccessToken       string `json:"access_token"`
	RefreshToken      string `json:"refresh_token"`
	TokenType         string `json:"token_type" example:"bearer"`
	ExpiresIn         int    `json:"expires_in"`
	RequiresTwoFactor bool   `json:"requires_2fa"`
}

// TwoFactorSetupResponse carries the enrollment material for an authenticator
type TwoFactorSetupResponse struct {
	Secret      string   `json:"secret"`
	QRCode      string   `json:"qr_code"`
	BackupCodes []string `json:"backup_codes"`
}

// VerifyTwoFactorResponse reports a standalone second-factor check
type VerifyTwoFactorResponse struct {
	Valid bool `json:"valid"`
}

// UserProfile represents the authenticated user's own view of the account
type UserProfile struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	EmailVerified    bool       `json:"email_verified"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	LastLoginAt      *time.Time `json:"last_login_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// HealthResponse represents the response from the health check endpoint
type HealthResponse struct {
	Status string    `json:"status" example:"healthy"`
	Time   time.Time `json:"time" example:"2024-03-20T13:00:00Z"`
}
