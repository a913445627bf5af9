package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/config"
	"sentinel/internal/models"
	"sentinel/internal/testutil"
)

type serviceFixture struct {
	service  *Service
	users    *testutil.MemUserRepo
	sessions *testutil.MemSessionRepo
	backup   *testutil.MemBackupCodeRepo
	attempts *testutil.MemAttemptRepo
	email    *testutil.MemEmailSender
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	cfg := &config.Config{
		Auth: config.AuthConfig{
			AccessTokenDuration:  30 * time.Minute,
			RefreshTokenDuration: 720 * time.Hour,
			MaxLoginAttempts:     5,
			LockoutDuration:      15 * time.Minute,
			PasswordMinLength:    8,
			RegistrationOpen:     true,
		},
		TwoFactor: config.TwoFactorConfig{Issuer: "Sentinel Test"},
	}

	f := &serviceFixture{
		users:    testutil.NewMemUserRepo(),
		sessions: testutil.NewMemSessionRepo(),
		backup:   testutil.NewMemBackupCodeRepo(),
		attempts: &testutil.MemAttemptRepo{},
		email:    &testutil.MemEmailSender{},
	}
	f.service = NewService(
		cfg,
		testIssuer(t, cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration),
		NewTwoFactorManager(cfg.TwoFactor.Issuer),
		f.users, f.sessions, f.backup, f.attempts, f.email,
	)
	return f
}

func (f *serviceFixture) addUser(t *testing.T, email, password string, verified bool) *models.User {
	t.Helper()

	hashed, err := HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		ID:            uuid.New(),
		Name:          "Test User",
		Email:         email,
		Password:      hashed,
		EmailVerified: verified,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return f.users.Users[user.ID]
}

const testPassword = "Str0ng!Pass"

func TestRegisterCreatesUnverifiedUser(t *testing.T) {
	f := newServiceFixture(t)

	user, err := f.service.Register(context.Background(), &models.RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)

	stored := f.users.Users[user.ID]
	assert.False(t, stored.EmailVerified)
	require.NotNil(t, stored.VerificationToken)

	// The store stamps the password age at creation; the service must not
	// supply it
	require.NotNil(t, stored.PasswordChangedAt)
	assert.False(t, stored.PasswordChangedAt.IsZero())

	ok, err := VerifyPassword(testPassword, stored.Password)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, f.email.Sent, 1)
	assert.Equal(t, "alice@example.com", f.email.Sent[0].To)
	assert.Equal(t, *stored.VerificationToken, f.email.Sent[0].Token)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newServiceFixture(t)
	f.addUser(t, "alice@example.com", testPassword, true)

	_, err := f.service.Register(context.Background(), &models.RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: testPassword,
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Register(context.Background(), &models.RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "weakpassword",
	})
	assert.ErrorIs(t, err, ErrWeakPassword)
	assert.Empty(t, f.email.Sent)
}

func TestRegisterClosed(t *testing.T) {
	f := newServiceFixture(t)
	f.service.config.Auth.RegistrationOpen = false

	_, err := f.service.Register(context.Background(), &models.RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: testPassword,
	})
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Authenticate(context.Background(), &models.LoginRequest{
		Email:    "nobody@example.com",
		Password: testPassword,
	}, RequestMeta{IPAddress: "10.0.0.1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.Len(t, f.attempts.Attempts, 1)
	assert.False(t, f.attempts.Attempts[0].Success)
	assert.Equal(t, "nobody@example.com", f.attempts.Attempts[0].Email)
}

func TestAuthenticateWrongPasswordLocksAccount(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)

	for i := 0; i < 5; i++ {
		_, err := f.service.Authenticate(context.Background(), &models.LoginRequest{
			Email:    "alice@example.com",
			Password: "wrong-password",
		}, RequestMeta{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	assert.Equal(t, 5, user.FailedLoginAttempts)
	require.NotNil(t, user.LockedUntil)
	assert.True(t, user.LockedUntil.After(time.Now()))

	// Even the right password is rejected while locked, and the counter
	// stays where it was
	_, err := f.service.Authenticate(context.Background(), &models.LoginRequest{
		Email:    "alice@example.com",
		Password: testPassword,
	}, RequestMeta{})
	assert.ErrorIs(t, err, ErrAccountLocked)
	assert.Equal(t, 5, user.FailedLoginAttempts)
	assert.Len(t, f.attempts.Attempts, 6)
}

func TestAuthenticateAfterLockoutExpires(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)
	past := time.Now().Add(-time.Minute)
	user.FailedLoginAttempts = 5
	user.LockedUntil = &past

	result, err := f.service.Authenticate(context.Background(), &models.LoginRequest{
		Email:    "alice@example.com",
		Password: testPassword,
	}, RequestMeta{})
	require.NoError(t, err)
	assert.False(t, result.RequiresTwoFactor)
	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.Nil(t, user.LockedUntil)
}

func TestAuthenticateUnverifiedEmail(t *testing.T) {
	f := newServiceFixture(t)
	f.addUser(t, "alice@example.com", testPassword, false)

	_, err := f.service.Authenticate(context.Background(), &models.LoginRequest{
		Email:    "alice@example.com",
		Password: testPassword,
	}, RequestMeta{})
	assert.ErrorIs(t, err, ErrEmailNotVerified)
	require.Len(t, f.attempts.Attempts, 1)
	assert.False(t, f.attempts.Attempts[0].Success)
}

func TestAuthenticateSuccessResetsFailures(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)
	user.FailedLoginAttempts = 3

	result, err := f.service.Authenticate(context.Background(), &models.LoginRequest{
		Email:    "alice@example.com",
		Password: testPassword,
	}, RequestMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.False(t, result.RequiresTwoFactor)

	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.NotNil(t, user.LastLoginAt)
	require.Len(t, f.attempts.Attempts, 1)
	assert.True(t, f.attempts.Attempts[0].Success)
}

func TestAuthenticateRequiresTwoFactor(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)
	secret := "JBSWY3DPEHPK3PXP"
	user.TOTPSecret = &secret
	user.TwoFactorEnabled = true

	result, err := f.service.Authenticate(context.Background(), &models.LoginRequest{
		Email:    "alice@example.com",
		Password: testPassword,
	}, RequestMeta{})
	require.NoError(t, err)
	assert.True(t, result.RequiresTwoFactor)

	// Intermediate outcome, nothing recorded yet
	assert.Empty(t, f.attempts.Attempts)
}

func TestAuthenticateWithTOTPCode(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)

	enrollment, err := f.service.twoFactor.GenerateEnrollment(user.Email)
	require.NoError(t, err)
	user.TOTPSecret = &enrollment.Secret
	user.TwoFactorEnabled = true

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)

	result, err := f.service.Authenticate(context.Background(), &models.LoginRequest{
		Email:    "alice@example.com",
		Password: testPassword,
		TOTPCode: code,
	}, RequestMeta{})
	require.NoError(t, err)
	assert.False(t, result.RequiresTwoFactor)
}

func TestAuthenticateWithBackupCode(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)
	secret := "JBSWY3DPEHPK3PXP"
	user.TOTPSecret = &secret
	user.TwoFactorEnabled = true

	hash, err := HashPassword("A1B2C3D4")
	require.NoError(t, err)
	require.NoError(t, f.backup.Replace(context.Background(), user.ID, []string{hash}))

	login := &models.LoginRequest{
		Email:      "alice@example.com",
		Password:   testPassword,
		BackupCode: "A1B2C3D4",
	}

	result, err := f.service.Authenticate(context.Background(), login, RequestMeta{})
	require.NoError(t, err)
	assert.False(t, result.RequiresTwoFactor)

	// The code is single-use
	_, err = f.service.Authenticate(context.Background(), login, RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidTwoFactor)
}

func TestAuthenticateInvalidTwoFactor(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)
	secret := "JBSWY3DPEHPK3PXP"
	user.TOTPSecret = &secret
	user.TwoFactorEnabled = true

	_, err := f.service.Authenticate(context.Background(), &models.LoginRequest{
		Email:    "alice@example.com",
		Password: testPassword,
		TOTPCode: "000000",
	}, RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidTwoFactor)
	require.Len(t, f.attempts.Attempts, 1)
	assert.False(t, f.attempts.Attempts[0].Success)
}

func TestCreateSessionAndRefresh(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)

	tokens, err := f.service.CreateSession(context.Background(), user, RequestMeta{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", tokens.TokenType)
	assert.Equal(t, 1800, tokens.ExpiresIn)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	refreshed, err := f.service.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.RefreshToken, refreshed.RefreshToken)
	assert.NotEmpty(t, refreshed.AccessToken)

	claims := f.service.tokens.Verify(refreshed.AccessToken, TokenTypeAccess)
	require.NotNil(t, claims)
	assert.Equal(t, user.ID.String(), claims.Subject)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)

	tokens, err := f.service.CreateSession(context.Background(), user, RequestMeta{})
	require.NoError(t, err)

	_, err = f.service.Refresh(context.Background(), tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestRefreshRevokedSession(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)

	tokens, err := f.service.CreateSession(context.Background(), user, RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, f.service.LogoutAll(context.Background(), user.ID))

	// The refresh token is still cryptographically valid but the
	// session row is gone from the active set
	_, err = f.service.Refresh(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)

	tokens, err := f.service.CreateSession(context.Background(), user, RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(context.Background(), user.ID, tokens.RefreshToken))
	require.NoError(t, f.service.Logout(context.Background(), user.ID, tokens.RefreshToken))
	require.NoError(t, f.service.Logout(context.Background(), user.ID, "unknown-token"))
}

func TestSessionsMarksCurrent(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)

	first, err := f.service.CreateSession(context.Background(), user, RequestMeta{})
	require.NoError(t, err)
	_, err = f.service.CreateSession(context.Background(), user, RequestMeta{})
	require.NoError(t, err)

	claims := f.service.tokens.Verify(first.AccessToken, TokenTypeAccess)
	require.NotNil(t, claims)

	infos, err := f.service.Sessions(context.Background(), user.ID, claims.ID)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	current := 0
	for _, info := range infos {
		if info.IsCurrent {
			current++
			assert.Equal(t, claims.ID, info.SessionID)
		}
	}
	assert.Equal(t, 1, current)
}

func TestRevokeSession(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)

	first, err := f.service.CreateSession(context.Background(), user, RequestMeta{})
	require.NoError(t, err)
	second, err := f.service.CreateSession(context.Background(), user, RequestMeta{})
	require.NoError(t, err)

	firstClaims := f.service.tokens.Verify(first.AccessToken, TokenTypeAccess)
	require.NotNil(t, firstClaims)

	require.NoError(t, f.service.RevokeSession(context.Background(), user.ID, firstClaims.ID))

	// The revoked session's refresh token is dead, the other survives
	_, err = f.service.Refresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidSession)
	_, err = f.service.Refresh(context.Background(), second.RefreshToken)
	assert.NoError(t, err)

	infos, err := f.service.Sessions(context.Background(), user.ID, "")
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestRevokeSessionUnknownID(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)

	_, err := f.service.CreateSession(context.Background(), user, RequestMeta{})
	require.NoError(t, err)

	err = f.service.RevokeSession(context.Background(), user.ID, "no-such-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRevokeSessionOtherUser(t *testing.T) {
	f := newServiceFixture(t)
	alice := f.addUser(t, "alice@example.com", testPassword, true)
	mallory := f.addUser(t, "mallory@example.com", testPassword, true)

	tokens, err := f.service.CreateSession(context.Background(), alice, RequestMeta{})
	require.NoError(t, err)
	claims := f.service.tokens.Verify(tokens.AccessToken, TokenTypeAccess)
	require.NotNil(t, claims)

	err = f.service.RevokeSession(context.Background(), mallory.ID, claims.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Alice's session is untouched
	_, err = f.service.Refresh(context.Background(), tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)

	_, err := f.service.CreateSession(context.Background(), user, RequestMeta{})
	require.NoError(t, err)

	err = f.service.ChangePassword(context.Background(), user.ID, "wrong-password", "N3w!Password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.service.ChangePassword(context.Background(), user.ID, testPassword, testPassword)
	assert.ErrorIs(t, err, ErrSamePassword)

	err = f.service.ChangePassword(context.Background(), user.ID, testPassword, "weak")
	assert.ErrorIs(t, err, ErrWeakPassword)

	require.NoError(t, f.service.ChangePassword(context.Background(), user.ID, testPassword, "N3w!Password"))

	ok, err := VerifyPassword("N3w!Password", f.users.Users[user.ID].Password)
	require.NoError(t, err)
	assert.True(t, ok)

	// Every session is revoked after a password change
	infos, err := f.service.Sessions(context.Background(), user.ID, "")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestVerifyEmail(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, false)
	token := "verification-token"
	user.VerificationToken = &token

	require.NoError(t, f.service.VerifyEmail(context.Background(), token))
	assert.True(t, f.users.Users[user.ID].EmailVerified)
	assert.Nil(t, f.users.Users[user.ID].VerificationToken)

	// Single use
	assert.ErrorIs(t, f.service.VerifyEmail(context.Background(), token), ErrInvalidVerification)
	assert.ErrorIs(t, f.service.VerifyEmail(context.Background(), "unknown"), ErrInvalidVerification)
}

func TestVerifyEmailExpiredWindow(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, false)
	token := "verification-token"
	user.VerificationToken = &token
	user.CreatedAt = time.Now().Add(-25 * time.Hour)

	assert.ErrorIs(t, f.service.VerifyEmail(context.Background(), token), ErrVerificationExpired)
	assert.False(t, f.users.Users[user.ID].EmailVerified)
}

func TestResendVerification(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, false)
	token := "old-token"
	user.VerificationToken = &token

	require.NoError(t, f.service.ResendVerification(context.Background(), "alice@example.com"))
	require.Len(t, f.email.Sent, 1)
	assert.NotEqual(t, "old-token", f.email.Sent[0].Token)

	// Unknown and already-verified addresses are a silent no-op
	require.NoError(t, f.service.ResendVerification(context.Background(), "nobody@example.com"))
	verified := f.addUser(t, "bob@example.com", testPassword, true)
	require.NoError(t, f.service.ResendVerification(context.Background(), verified.Email))
	assert.Len(t, f.email.Sent, 1)
}

func TestTwoFactorLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)

	// Enabling before setup fails
	assert.ErrorIs(t, f.service.EnableTwoFactor(context.Background(), user.ID, "000000"), ErrTwoFactorNotConfigured)

	setup, err := f.service.SetupTwoFactor(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Len(t, setup.BackupCodes, 10)
	assert.False(t, f.users.Users[user.ID].TwoFactorEnabled)

	// Wrong code does not enable
	assert.ErrorIs(t, f.service.EnableTwoFactor(context.Background(), user.ID, "000000"), ErrInvalidTwoFactor)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.service.EnableTwoFactor(context.Background(), user.ID, code))
	assert.True(t, f.users.Users[user.ID].TwoFactorEnabled)

	// Standalone verification consumes a backup code
	valid, err := f.service.VerifyTwoFactor(context.Background(), user.ID, "", setup.BackupCodes[0])
	require.NoError(t, err)
	assert.True(t, valid)
	valid, err = f.service.VerifyTwoFactor(context.Background(), user.ID, "", setup.BackupCodes[0])
	require.NoError(t, err)
	assert.False(t, valid)

	require.NoError(t, f.service.DisableTwoFactor(context.Background(), user.ID))
	assert.False(t, f.users.Users[user.ID].TwoFactorEnabled)
	assert.Nil(t, f.users.Users[user.ID].TOTPSecret)
	remaining, err := f.backup.ListUnused(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestBackupCodeConcurrentConsumption(t *testing.T) {
	f := newServiceFixture(t)
	user := f.addUser(t, "alice@example.com", testPassword, true)
	secret := "JBSWY3DPEHPK3PXP"
	user.TOTPSecret = &secret
	user.TwoFactorEnabled = true

	hash, err := HashPassword("A1B2C3D4")
	require.NoError(t, err)
	require.NoError(t, f.backup.Replace(context.Background(), user.ID, []string{hash}))

	const callers = 8
	results := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		go func() {
			valid, err := f.service.VerifyTwoFactor(context.Background(), user.ID, "", "A1B2C3D4")
			assert.NoError(t, err)
			results <- valid
		}()
	}

	succeeded := 0
	for i := 0; i < callers; i++ {
		if <-results {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}
