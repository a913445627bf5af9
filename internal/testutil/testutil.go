// Package testutil provides in-memory implementations of the repository
// interfaces and the email sender for tests
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"sentinel/internal/models"
	"sentinel/internal/repository"
)

// MemUserRepo is an in-memory UserRepository
type MemUserRepo struct {
	Users map[uuid.UUID]*models.User
}

func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{Users: make(map[uuid.UUID]*models.User)}
}

func (r *MemUserRepo) Create(_ context.Context, user *models.User) error {
	for _, u := range r.Users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	stored := *user
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = stored.CreatedAt
	// Mirrors the column default: a fresh account's password age is its
	// creation time
	if stored.PasswordChangedAt == nil {
		stored.PasswordChangedAt = &stored.CreatedAt
	}
	r.Users[stored.ID] = &stored
	user.PasswordChangedAt = stored.PasswordChangedAt
	return nil
}

func (r *MemUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.Users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *MemUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range r.Users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *MemUserRepo) GetByVerificationToken(_ context.Context, token string) (*models.User, error) {
	for _, user := range r.Users {
		if user.VerificationToken != nil && *user.VerificationToken == token {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *MemUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hashedPassword string) error {
	user, ok := r.Users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	now := time.Now()
	user.Password = hashedPassword
	user.PasswordChangedAt = &now
	return nil
}

func (r *MemUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, lastLoginAt time.Time) error {
	user, ok := r.Users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LastLoginAt = &lastLoginAt
	return nil
}

func (r *MemUserRepo) IncrementFailedAttempts(_ context.Context, id uuid.UUID) (int, error) {
	user, ok := r.Users[id]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	user.FailedLoginAttempts++
	return user.FailedLoginAttempts, nil
}

func (r *MemUserRepo) Lock(_ context.Context, id uuid.UUID, until time.Time) error {
	user, ok := r.Users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LockedUntil = &until
	return nil
}

func (r *MemUserRepo) ResetFailedAttempts(_ context.Context, id uuid.UUID) error {
	user, ok := r.Users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	return nil
}

func (r *MemUserRepo) MarkEmailVerified(_ context.Context, id uuid.UUID) error {
	user, ok := r.Users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.EmailVerified = true
	user.VerificationToken = nil
	return nil
}

func (r *MemUserRepo) SetVerificationToken(_ context.Context, id uuid.UUID, token *string) error {
	user, ok := r.Users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.VerificationToken = token
	return nil
}

func (r *MemUserRepo) SetTOTPSecret(_ context.Context, id uuid.UUID, secret *string) error {
	user, ok := r.Users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.TOTPSecret = secret
	return nil
}

func (r *MemUserRepo) SetTwoFactorEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	user, ok := r.Users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.TwoFactorEnabled = enabled
	return nil
}

// MemSessionRepo is an in-memory SessionRepository
type MemSessionRepo struct {
	Sessions map[uuid.UUID]*models.Session
}

func NewMemSessionRepo() *MemSessionRepo {
	return &MemSessionRepo{Sessions: make(map[uuid.UUID]*models.Session)}
}

func (r *MemSessionRepo) Create(_ context.Context, session *models.Session) error {
	stored := *session
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.Sessions[stored.ID] = &stored
	return nil
}

func (r *MemSessionRepo) GetActiveByRefreshToken(_ context.Context, refreshToken string, userID uuid.UUID) (*models.Session, error) {
	for _, session := range r.Sessions {
		if session.RefreshToken == refreshToken && session.UserID == userID && session.IsUsable() {
			copied := *session
			return &copied, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (r *MemSessionRepo) ListActiveByUserID(_ context.Context, userID uuid.UUID) ([]models.Session, error) {
	var out []models.Session
	for _, session := range r.Sessions {
		if session.UserID == userID && session.IsUsable() {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (r *MemSessionRepo) UpdateLastActivity(_ context.Context, id uuid.UUID, lastActivity time.Time) error {
	session, ok := r.Sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.LastActivity = lastActivity
	return nil
}

func (r *MemSessionRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if session, ok := r.Sessions[id]; ok {
		session.Deactivate()
	}
	return nil
}

func (r *MemSessionRepo) DeactivateByRefreshToken(_ context.Context, refreshToken string, userID uuid.UUID) error {
	for _, session := range r.Sessions {
		if session.RefreshToken == refreshToken && session.UserID == userID {
			session.Deactivate()
		}
	}
	return nil
}

func (r *MemSessionRepo) DeactivateAllForUser(_ context.Context, userID uuid.UUID) error {
	for _, session := range r.Sessions {
		if session.UserID == userID {
			session.Deactivate()
		}
	}
	return nil
}

func (r *MemSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	var removed int64
	for id, session := range r.Sessions {
		if time.Now().After(session.ExpiresAt) {
			delete(r.Sessions, id)
			removed++
		}
	}
	return removed, nil
}

// MemBackupCodeRepo is an in-memory BackupCodeRepository. It is safe
// for concurrent use so tests can race code consumption.
type MemBackupCodeRepo struct {
	mu    sync.Mutex
	Codes map[uuid.UUID]*models.BackupCode
}

func NewMemBackupCodeRepo() *MemBackupCodeRepo {
	return &MemBackupCodeRepo{Codes: make(map[uuid.UUID]*models.BackupCode)}
}

func (r *MemBackupCodeRepo) Replace(_ context.Context, userID uuid.UUID, codeHashes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, code := range r.Codes {
		if code.UserID == userID {
			delete(r.Codes, id)
		}
	}
	for _, hash := range codeHashes {
		id := uuid.New()
		r.Codes[id] = &models.BackupCode{ID: id, UserID: userID, CodeHash: hash, CreatedAt: time.Now()}
	}
	return nil
}

func (r *MemBackupCodeRepo) ListUnused(_ context.Context, userID uuid.UUID) ([]models.BackupCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.BackupCode
	for _, code := range r.Codes {
		if code.UserID == userID && !code.Used {
			out = append(out, *code)
		}
	}
	return out, nil
}

func (r *MemBackupCodeRepo) MarkUsed(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.Codes[id]
	if !ok || code.Used {
		return false, nil
	}
	now := time.Now()
	code.Used = true
	code.UsedAt = &now
	return true, nil
}

func (r *MemBackupCodeRepo) DeleteForUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, code := range r.Codes {
		if code.UserID == userID {
			delete(r.Codes, id)
		}
	}
	return nil
}

// MemAttemptRepo is an in-memory LoginAttemptRepository
type MemAttemptRepo struct {
	Attempts []models.LoginAttempt
}

func (r *MemAttemptRepo) Create(_ context.Context, attempt *models.LoginAttempt) error {
	stored := *attempt
	if stored.AttemptedAt.IsZero() {
		stored.AttemptedAt = time.Now()
	}
	r.Attempts = append(r.Attempts, stored)
	return nil
}

func (r *MemAttemptRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []models.LoginAttempt
	var removed int64
	for _, attempt := range r.Attempts {
		if attempt.AttemptedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, attempt)
	}
	r.Attempts = kept
	return removed, nil
}

// SentEmail records one email handed to the MemEmailSender
type SentEmail struct {
	To    string
	Name  string
	Token string
}

// MemEmailSender records verification emails instead of sending them
type MemEmailSender struct {
	Sent []SentEmail
}

func (s *MemEmailSender) SendVerificationEmail(to, name, token string) error {
	s.Sent = append(s.Sent, SentEmail{To: to, Name: name, Token: token})
	return nil
}
