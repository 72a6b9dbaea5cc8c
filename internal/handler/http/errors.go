package http

import "errors"

// Stable machine-readable error codes. Clients branch on these; the
// accompanying messages are human-readable Spanish and may change freely.
const (
	CodeInvalidCredentials      = "INVALID_CREDENTIALS"
	CodeAccountInactive         = "ACCOUNT_INACTIVE"
	CodeRateLimitExceeded       = "RATE_LIMIT_EXCEEDED"
	CodeInvalidToken            = "INVALID_TOKEN"
	CodeTokenExpired            = "TOKEN_EXPIRED"
	CodeNoToken                 = "NO_TOKEN"
	CodeInsufficientRole        = "INSUFFICIENT_ROLE"
	CodeInsufficientPermissions = "INSUFFICIENT_MEDICAL_PERMISSIONS"
	CodeEmailAlreadyExists      = "EMAIL_ALREADY_EXISTS"
	CodeLicenseAlreadyExists    = "LICENSE_ALREADY_EXISTS"
	CodeValidationError         = "VALIDATION_ERROR"
	CodeInternalError           = "INTERNAL_ERROR"
)

var (
	ErrEmptyAuthorizationHeader   = errors.New("empty Authorization header")
	ErrInvalidAuthorizationHeader = errors.New("invalid Authorization header")
	ErrEmptyToken                 = errors.New("empty token in Authorization header")
)
