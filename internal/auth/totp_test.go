package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEnrollment(t *testing.T) {
	mgr := NewTwoFactorManager("Sentinel Test")

	enrollment, err := mgr.GenerateEnrollment("alice@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, enrollment.Secret)
	assert.True(t, strings.HasPrefix(enrollment.QRCode, "data:image/png;base64,"))
	assert.Len(t, enrollment.BackupCodes, 10)
}

func TestVerifyAcceptsCurrentCode(t *testing.T) {
	mgr := NewTwoFactorManager("Sentinel Test")

	enrollment, err := mgr.GenerateEnrollment("alice@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)

	assert.True(t, mgr.Verify(code, enrollment.Secret))
	assert.False(t, mgr.Verify("000000", enrollment.Secret))
}

func TestGenerateBackupCodesAreDistinct(t *testing.T) {
	codes, err := GenerateBackupCodes()
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.Len(t, code, 8)
		assert.Equal(t, strings.ToUpper(code), code)
		assert.False(t, seen[code], "duplicate backup code %s", code)
		seen[code] = true
	}
}
