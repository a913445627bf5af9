// Package auth implements credential verification, the login pipeline,
// session management and second-factor handling
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"sentinel/internal/config"
	"sentinel/internal/email"
	"sentinel/internal/models"
	"sentinel/internal/repository"
)

const verificationWindow = 24 * time.Hour

// RequestMeta carries the client metadata recorded with login attempts
// and sessions
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// LoginResult is the outcome of a successful pipeline run. When
// RequiresTwoFactor is true the caller must re-prompt for a second
// factor; no session exists yet.
type LoginResult struct {
	User              *models.User
	RequiresTwoFactor bool
}

// Service provides authentication functionality
type Service struct {
	config         *config.Config
	tokens         *TokenIssuer
	twoFactor      *TwoFactorManager
	userRepo       repository.UserRepository
	sessionRepo    repository.SessionRepository
	backupCodeRepo repository.BackupCodeRepository
	attemptRepo    repository.LoginAttemptRepository
	emailSender    email.Sender
}

// NewService creates a new authentication service
func NewService(
	config *config.Config,
	tokens *TokenIssuer,
	twoFactor *TwoFactorManager,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	backupCodeRepo repository.BackupCodeRepository,
	attemptRepo repository.LoginAttemptRepository,
	emailSender email.Sender,
) *Service {
	return &Service{
		config:         config,
		tokens:         tokens,
		twoFactor:      twoFactor,
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		backupCodeRepo: backupCodeRepo,
		attemptRepo:    attemptRepo,
		emailSender:    emailSender,
	}
}

// Register creates a new unverified account and sends the verification
// email. Email delivery failures are logged, not returned; the account
// exists either way.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if !s.config.Auth.RegistrationOpen {
		return nil, ErrRegistrationClosed
	}

	if err := ValidatePasswordStrength(req.Password, s.config.Auth.PasswordMinLength); err != nil {
		return nil, err
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	token, err := newVerificationToken()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:                uuid.New(),
		Name:              req.Name,
		Email:             req.Email,
		Password:          hashed,
		VerificationToken: &token,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	if err := s.emailSender.SendVerificationEmail(user.Email, user.Name, token); err != nil {
		log.Printf("failed to send verification email to %s: %v", user.Email, err)
	}

	return user, nil
}

// Authenticate runs the login pipeline: lookup, lockout check, password
// check, verified check, second-factor check. An audit record is written
// at every terminal exit.
func (s *Service) Authenticate(ctx context.Context, req *models.LoginRequest, meta RequestMeta) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.recordAttempt(ctx, req.Email, meta, false)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// Locked accounts short-circuit before password verification and
	// never touch the failure counter
	if user.IsLocked() {
		s.recordAttempt(ctx, req.Email, meta, false)
		return nil, ErrAccountLocked
	}

	ok, err := VerifyPassword(req.Password, user.Password)
	if err != nil || !ok {
		s.handleFailedPassword(ctx, user)
		s.recordAttempt(ctx, req.Email, meta, false)
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		s.recordAttempt(ctx, req.Email, meta, false)
		return nil, ErrEmailNotVerified
	}

	if user.TwoFactorEnabled {
		// No factor supplied at all is an intermediate outcome, not a
		// failure; the client re-prompts and calls again
		if req.TOTPCode == "" && req.BackupCode == "" {
			return &LoginResult{User: user, RequiresTwoFactor: true}, nil
		}

		valid := false
		if req.TOTPCode != "" && user.TOTPSecret != nil {
			valid = s.twoFactor.Verify(req.TOTPCode, *user.TOTPSecret)
		}
		if !valid && req.BackupCode != "" {
			valid, err = s.consumeBackupCode(ctx, user.ID, req.BackupCode)
			if err != nil {
				return nil, err
			}
		}
		if !valid {
			s.recordAttempt(ctx, req.Email, meta, false)
			return nil, ErrInvalidTwoFactor
		}
	}

	if err := s.userRepo.ResetFailedAttempts(ctx, user.ID); err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.ResetFailedAttempts()
	user.LastLoginAt = &now

	s.recordAttempt(ctx, req.Email, meta, true)

	return &LoginResult{User: user}, nil
}

// handleFailedPassword bumps the failure counter and applies the lockout
// once the threshold is reached. The increment is atomic per row; a rare
// lost lockout under extreme concurrency is bounded by the next failed
// attempt.
func (s *Service) handleFailedPassword(ctx context.Context, user *models.User) {
	count, err := s.userRepo.IncrementFailedAttempts(ctx, user.ID)
	if err != nil {
		log.Printf("failed to increment login failures for %s: %v", user.Email, err)
		return
	}

	if count >= s.config.Auth.MaxLoginAttempts {
		until := time.Now().Add(s.config.Auth.LockoutDuration)
		if err := s.userRepo.Lock(ctx, user.ID, until); err != nil {
			log.Printf("failed to lock account %s: %v", user.Email, err)
		}
	}
}

// CreateSession mints the token pair and persists the session row
func (s *Service) CreateSession(ctx context.Context, user *models.User, meta RequestMeta) (*models.TokenResponse, error) {
	sessionToken := uuid.NewString()

	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.Email, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user.ID, user.Email, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}

	now := time.Now()
	session := &models.Session{
		ID:           uuid.New(),
		SessionToken: sessionToken,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		IPAddress:    optional(meta.IPAddress),
		UserAgent:    optional(meta.UserAgent),
		Active:       true,
		ExpiresAt:    now.Add(s.config.Auth.RefreshTokenDuration),
		LastActivity: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is kept, so revoking the session invalidates it
// immediately regardless of its cryptographic expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	claims := s.tokens.Verify(refreshToken, TokenTypeRefresh)
	if claims == nil {
		return nil, ErrInvalidSession
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidSession
	}

	session, err := s.sessionRepo.GetActiveByRefreshToken(ctx, refreshToken, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.Email, session.SessionToken)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}

	if err := s.sessionRepo.UpdateLastActivity(ctx, session.ID, time.Now()); err != nil {
		log.Printf("failed to update session activity for %s: %v", session.ID, err)
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// Logout revokes the session bound to the refresh token. Revoking an
// already-revoked or unknown session is not an error.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	return s.sessionRepo.DeactivateByRefreshToken(ctx, refreshToken, userID)
}

// LogoutAll revokes every active session for the user
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.sessionRepo.DeactivateAllForUser(ctx, userID)
}

// RevokeSession revokes one of the user's sessions by the session id the
// listing exposes. The ownership scan means a caller can never revoke
// another user's session.
func (s *Service) RevokeSession(ctx context.Context, userID uuid.UUID, sessionID string) error {
	sessions, err := s.sessionRepo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return err
	}

	for _, session := range sessions {
		if session.SessionToken == sessionID {
			return s.sessionRepo.Deactivate(ctx, session.ID)
		}
	}
	return ErrSessionNotFound
}

// Sessions lists the user's active sessions, most recently used first.
// currentSessionToken comes from the caller's access token and marks
// which listed session made the request.
func (s *Service) Sessions(ctx context.Context, userID uuid.UUID, currentSessionToken string) ([]models.SessionInfo, error) {
	sessions, err := s.sessionRepo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	infos := make([]models.SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, models.SessionInfo{
			SessionID:    session.SessionToken,
			DeviceInfo:   session.DeviceInfo,
			IPAddress:    session.IPAddress,
			UserAgent:    session.UserAgent,
			LastActivity: session.LastActivity,
			IsCurrent:    session.SessionToken == currentSessionToken,
		})
	}
	return infos, nil
}

// ChangePassword replaces the password after verifying the current one
// and revokes every session, forcing a fresh login
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := VerifyPassword(currentPassword, user.Password)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	if err := ValidatePasswordStrength(newPassword, s.config.Auth.PasswordMinLength); err != nil {
		return err
	}

	same, err := VerifyPassword(newPassword, user.Password)
	if err == nil && same {
		return ErrSamePassword
	}

	hashed, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hashed); err != nil {
		return err
	}

	return s.sessionRepo.DeactivateAllForUser(ctx, userID)
}

// VerifyEmail confirms the address behind a verification token. Tokens
// are single-use and expire 24 hours after the account was created.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.userRepo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidVerification
		}
		return err
	}

	if user.EmailVerified {
		return ErrInvalidVerification
	}
	if time.Since(user.CreatedAt) > verificationWindow {
		return ErrVerificationExpired
	}

	return s.userRepo.MarkEmailVerified(ctx, user.ID)
}

// ResendVerification issues a fresh verification token and re-sends the
// email. It reveals nothing about whether the address exists or is
// already verified; unknown or verified addresses are a silent no-op.
func (s *Service) ResendVerification(ctx context.Context, emailAddr string) error {
	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}

	token, err := newVerificationToken()
	if err != nil {
		return err
	}
	if err := s.userRepo.SetVerificationToken(ctx, user.ID, &token); err != nil {
		return err
	}

	if err := s.emailSender.SendVerificationEmail(user.Email, user.Name, token); err != nil {
		log.Printf("failed to send verification email to %s: %v", user.Email, err)
	}
	return nil
}

// SetupTwoFactor generates a fresh TOTP secret, QR code and backup
// codes. The secret is stored but 2FA stays disabled until
// EnableTwoFactor confirms the authenticator works. Running setup again
// replaces the secret and the whole backup code set.
func (s *Service) SetupTwoFactor(ctx context.Context, userID uuid.UUID) (*models.TwoFactorSetupResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.twoFactor.GenerateEnrollment(user.Email)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetTOTPSecret(ctx, userID, &enrollment.Secret); err != nil {
		return nil, err
	}

	hashes := make([]string, 0, len(enrollment.BackupCodes))
	for _, code := range enrollment.BackupCodes {
		hash, err := HashPassword(code)
		if err != nil {
			return nil, fmt.Errorf("hashing backup code: %w", err)
		}
		hashes = append(hashes, hash)
	}
	if err := s.backupCodeRepo.Replace(ctx, userID, hashes); err != nil {
		return nil, err
	}

	return &models.TwoFactorSetupResponse{
		Secret:      enrollment.Secret,
		QRCode:      enrollment.QRCode,
		BackupCodes: enrollment.BackupCodes,
	}, nil
}

// EnableTwoFactor turns on 2FA after a valid TOTP code proves the
// authenticator was enrolled
func (s *Service) EnableTwoFactor(ctx context.Context, userID uuid.UUID, totpCode string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.TOTPSecret == nil {
		return ErrTwoFactorNotConfigured
	}
	if !s.twoFactor.Verify(totpCode, *user.TOTPSecret) {
		return ErrInvalidTwoFactor
	}

	return s.userRepo.SetTwoFactorEnabled(ctx, userID, true)
}

// DisableTwoFactor turns off 2FA, drops the secret and removes the
// backup codes
func (s *Service) DisableTwoFactor(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.SetTwoFactorEnabled(ctx, userID, false); err != nil {
		return err
	}
	if err := s.userRepo.SetTOTPSecret(ctx, userID, nil); err != nil {
		return err
	}
	return s.backupCodeRepo.DeleteForUser(ctx, userID)
}

// VerifyTwoFactor checks a second factor outside the login flow. A
// matching backup code is consumed.
func (s *Service) VerifyTwoFactor(ctx context.Context, userID uuid.UUID, totpCode, backupCode string) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}

	if !user.TwoFactorEnabled || user.TOTPSecret == nil {
		return false, ErrTwoFactorNotConfigured
	}

	if totpCode != "" && s.twoFactor.Verify(totpCode, *user.TOTPSecret) {
		return true, nil
	}
	if backupCode != "" {
		return s.consumeBackupCode(ctx, userID, backupCode)
	}
	return false, nil
}

// consumeBackupCode scans the user's unused codes with the constant-time
// verifier and consumes the first match. The conditional mark-used means
// two concurrent submissions of the same code yield exactly one success.
func (s *Service) consumeBackupCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	codes, err := s.backupCodeRepo.ListUnused(ctx, userID)
	if err != nil {
		return false, err
	}

	for _, candidate := range codes {
		ok, err := VerifyPassword(code, candidate.CodeHash)
		if err != nil || !ok {
			continue
		}
		return s.backupCodeRepo.MarkUsed(ctx, candidate.ID)
	}
	return false, nil
}

// recordAttempt writes the audit record for a terminal login outcome.
// Audit writes are best-effort and never fail the login itself.
func (s *Service) recordAttempt(ctx context.Context, email string, meta RequestMeta, success bool) {
	attempt := &models.LoginAttempt{
		Email:     email,
		IPAddress: meta.IPAddress,
		Success:   success,
		UserAgent: optional(meta.UserAgent),
	}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		log.Printf("failed to record login attempt for %s: %v", email, err)
	}
}

func newVerificationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
