package models

// RegisterRequest represents the request to create a new account
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,notblank,min=2,max=100" example:"Alice Example"`
	Email    string `json:"email" binding:"required,email" example:"alice@example.com"`
	Password string `json:"password" binding:"required,min=8" example:"Str0ng!Pass"`
}

// LoginRequest represents the login credentials with optional second factor
type LoginRequest struct {
	Email      string `json:"email" binding:"required,email" example:"alice@example.com"`
	Password   string `json:"password" binding:"required" example:"Str0ng!Pass"`
	TOTPCode   string `json:"totp_code,omitempty" example:"123456"`
	BackupCode string `json:"backup_code,omitempty" example:"A1B2C3D4"`
}

// RefreshRequest represents the request to refresh an access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest represents the request to invalidate a session
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ResendVerificationRequest represents the request to resend a verification email
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ChangePasswordRequest represents the request to change the current password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// EnableTwoFactorRequest carries the TOTP code proving the authenticator works
type EnableTwoFactorRequest struct {
	TOTPCode string `json:"totp_code" binding:"required"`
}

// VerifyTwoFactorRequest carries a second factor for standalone verification
type VerifyTwoFactorRequest struct {
	TOTPCode   string `json:"totp_code,omitempty"`
	BackupCode string `json:"backup_code,omitempty"`
}
