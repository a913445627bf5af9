package repository

import "errors"

var (
	// Common errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Backup code errors
	ErrBackupCodeNotFound = errors.New("backup code not found")
)
