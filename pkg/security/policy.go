package security

import (
	"errors"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted at sign-up and on change.
const MinPasswordLength = 6

var (
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// CheckPasswordPolicy validates a candidate password without touching storage.
func CheckPasswordPolicy(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// CheckPasswordChange validates a new password and its confirmation.
// A mismatch is reported before the length rule.
func CheckPasswordChange(newPassword, confirmation string) error {
	if newPassword != confirmation {
		return ErrPasswordMismatch
	}
	return CheckPasswordPolicy(newPassword)
}
