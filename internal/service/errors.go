package service

import (
	"errors"

	"taskhub/internal/repository"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("No active account found with the given credentials")
	ErrInvalidToken       = errors.New("token is invalid or expired")
)

// Password reset failures are shown to the caller verbatim.
var (
	ErrInvalidEmail = errors.New("Invalid email")
	ErrNoValidCode  = errors.New("No valid code found")
	ErrCodeExpired  = errors.New("Code expired")
	ErrInvalidCode  = errors.New("Invalid code")
)

// IsResetError reports whether err is one of the password reset failures.
func IsResetError(err error) bool {
	return errors.Is(err, ErrInvalidEmail) || errors.Is(err, ErrNoValidCode) ||
		errors.Is(err, ErrCodeExpired) || errors.Is(err, ErrInvalidCode)
}

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func translate(err error) error {
	if repository.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
