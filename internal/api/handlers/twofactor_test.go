package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/models"
)

func TestTwoFactorSetupAndEnable(t *testing.T) {
	tc := newTestContext(t)
	user := tc.createUser(t, "alice@example.com", true)
	tokens := tc.login(t, "alice@example.com")

	w := tc.request(t, http.MethodPost, "/api/v1/auth/2fa/setup", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var setup models.TwoFactorSetupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &setup))
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.QRCode, "data:image/png;base64,")
	assert.Len(t, setup.BackupCodes, 10)

	// Setup stores the secret but does not enable 2FA yet
	assert.False(t, tc.users.Users[user.ID].TwoFactorEnabled)

	w = tc.request(t, http.MethodPost, "/api/v1/auth/2fa/enable", tokens.AccessToken, models.EnableTwoFactorRequest{
		TOTPCode: "000000",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	w = tc.request(t, http.MethodPost, "/api/v1/auth/2fa/enable", tokens.AccessToken, models.EnableTwoFactorRequest{
		TOTPCode: code,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, tc.users.Users[user.ID].TwoFactorEnabled)
}

func TestTwoFactorVerifyConsumesBackupCode(t *testing.T) {
	tc := newTestContext(t)
	user := tc.createUser(t, "alice@example.com", true)
	tokens := tc.login(t, "alice@example.com")

	w := tc.request(t, http.MethodPost, "/api/v1/auth/2fa/setup", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var setup models.TwoFactorSetupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &setup))

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	w = tc.request(t, http.MethodPost, "/api/v1/auth/2fa/enable", tokens.AccessToken, models.EnableTwoFactorRequest{
		TOTPCode: code,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, tc.users.Users[user.ID].TwoFactorEnabled)

	verify := func(backupCode string) models.VerifyTwoFactorResponse {
		w := tc.request(t, http.MethodPost, "/api/v1/auth/2fa/verify", tokens.AccessToken, models.VerifyTwoFactorRequest{
			BackupCode: backupCode,
		})
		require.Equal(t, http.StatusOK, w.Code)
		var resp models.VerifyTwoFactorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	assert.True(t, verify(setup.BackupCodes[0]).Valid)
	assert.False(t, verify(setup.BackupCodes[0]).Valid)
	assert.True(t, verify(setup.BackupCodes[1]).Valid)
}

func TestTwoFactorDisable(t *testing.T) {
	tc := newTestContext(t)
	user := tc.createUser(t, "alice@example.com", true)
	tokens := tc.login(t, "alice@example.com")
	secret := "JBSWY3DPEHPK3PXP"
	user.TOTPSecret = &secret
	user.TwoFactorEnabled = true

	w := tc.request(t, http.MethodPost, "/api/v1/auth/2fa/disable", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.False(t, tc.users.Users[user.ID].TwoFactorEnabled)
	assert.Nil(t, tc.users.Users[user.ID].TOTPSecret)
}

func TestTwoFactorVerifyWithoutSetup(t *testing.T) {
	tc := newTestContext(t)
	tc.createUser(t, "alice@example.com", true)
	tokens := tc.login(t, "alice@example.com")

	w := tc.request(t, http.MethodPost, "/api/v1/auth/2fa/verify", tokens.AccessToken, models.VerifyTwoFactorRequest{
		TOTPCode: "123456",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
