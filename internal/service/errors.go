package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// indistinguishably.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountInactive means the credentials were valid but the account
	// is deactivated or not yet verified.
	ErrAccountInactive = errors.New("account inactive or unverified")

	// ErrInvalidToken covers every token verification failure: bad
	// signature, expired, wrong audience or issuer, revoked, already
	// consumed.
	ErrInvalidToken = errors.New("invalid or expired token")

	ErrEmailAlreadyExists   = errors.New("email already registered")
	ErrLicenseAlreadyExists = errors.New("license number already registered")

	ErrRecoveryTokenInvalid = errors.New("recovery token invalid or already used")
	ErrRecoveryTokenExpired = errors.New("recovery token expired")
)

// ValidationError carries per-field messages for a rejected request body.
// Field messages are user-facing and written in Spanish.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}

	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// NewValidationError builds a ValidationError with a single offending field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
