package auth

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

const passwordSymbols = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// ValidatePasswordStrength checks a password against the strength policy
// and reports the first failing rule wrapped in ErrWeakPassword
func ValidatePasswordStrength(password string, minLength int) error {
	if len(password) < minLength {
		return fmt.Errorf("%w: must be at least %d characters long", ErrWeakPassword, minLength)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	switch {
	case !hasUpper:
		return fmt.Errorf("%w: must contain at least one uppercase letter", ErrWeakPassword)
	case !hasLower:
		return fmt.Errorf("%w: must contain at least one lowercase letter", ErrWeakPassword)
	case !hasDigit:
		return fmt.Errorf("%w: must contain at least one digit", ErrWeakPassword)
	case !hasSymbol:
		return fmt.Errorf("%w: must contain at least one special character", ErrWeakPassword)
	}

	return nil
}

// IsValidEmail checks whether the address parses as a bare RFC 5322 address
func IsValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}
