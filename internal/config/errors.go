package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrMissingTokenSecrets indicates that one or both token signing
	// secrets are empty.
	ErrMissingTokenSecrets = errors.New("access and refresh token secrets are required")
	// ErrSharedTokenSecret indicates that access and refresh tokens were
	// configured with the same signing secret; the two kinds must be
	// verifiable independently.
	ErrSharedTokenSecret = errors.New("access and refresh token secrets must differ")
	// ErrInvalidStorageConfigs indicates invalid storage settings
	// (for example, an unknown backend or a missing DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidAppConfigs indicates invalid application-level settings
	// (for example, an unknown registration policy).
	ErrInvalidAppConfigs = errors.New("invalid app configuration")
	// ErrInvalidRateLimitConfigs indicates a rate-limit policy with
	// non-positive window, attempts, or block duration.
	ErrInvalidRateLimitConfigs = errors.New("invalid rate limit configuration")
)
