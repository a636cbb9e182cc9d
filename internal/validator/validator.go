package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail    = errors.New("enter a valid email address")
	ErrInvalidUsername = errors.New("use 3 to 30 letters, digits or underscores")
	ErrShortPassword   = errors.New("password must be at least 8 characters")
	ErrLongPassword    = errors.New("password must be at most 72 bytes")
)

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
)

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrShortPassword
	}
	if len(password) > maxPasswordBytes {
		return ErrLongPassword
	}
	return nil
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Registration returns a message per failing field, or nil.
func Registration(username, email, password string) map[string]string {
	fields := map[string]string{}
	if err := ValidateUsername(username); err != nil {
		fields["username"] = err.Error()
	}
	if err := ValidateEmail(email); err != nil {
		fields["email"] = err.Error()
	}
	if err := ValidatePassword(password); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
