package auth

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"

	"github.com/pquerna/otp/totp"
)

const backupCodeCount = 10

// TwoFactorEnrollment holds everything the user needs to finish 2FA setup
type TwoFactorEnrollment struct {
	Secret      string
	QRCode      string
	BackupCodes []string
}

// TwoFactorManager handles TOTP secrets, provisioning QR codes and
// backup codes
type TwoFactorManager struct {
	issuer string
}

// NewTwoFactorManager creates a manager that labels provisioning URIs
// with the given issuer
func NewTwoFactorManager(issuer string) *TwoFactorManager {
	return &TwoFactorManager{issuer: issuer}
}

// GenerateEnrollment creates a fresh TOTP secret, a base64 PNG QR code
// of the provisioning URI and a set of plaintext backup codes. The
// backup codes must be hashed before storage.
func (m *TwoFactorManager) GenerateEnrollment(email string) (*TwoFactorEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: email,
	})
	if err != nil {
		return nil, fmt.Errorf("generating TOTP secret: %w", err)
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return nil, fmt.Errorf("rendering QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding QR code: %w", err)
	}

	codes, err := GenerateBackupCodes()
	if err != nil {
		return nil, err
	}

	return &TwoFactorEnrollment{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		BackupCodes: codes,
	}, nil
}

// Verify checks a TOTP code against a secret, allowing one period of
// clock skew in either direction
func (m *TwoFactorManager) Verify(code, secret string) bool {
	return totp.Validate(code, secret)
}

// GenerateBackupCodes returns a set of distinct single-use recovery codes
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, 0, backupCodeCount)
	seen := make(map[string]bool, backupCodeCount)

	for len(codes) < backupCodeCount {
		b := make([]byte, 4)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		code := strings.ToUpper(fmt.Sprintf("%x", b))
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}

	return codes, nil
}
