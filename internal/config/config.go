// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"
)

// Storage backend selectors accepted by [Storage.Backend].
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// Registration policies accepted by [App.RegistrationPolicy]. The choice is an
// explicit per-deployment decision: either new accounts are usable
// immediately, or they wait for administrator activation.
const (
	RegistrationAutoActivate    = "auto_activate"
	RegistrationPendingApproval = "pending_approval"
)

// StructuredConfig is the top-level configuration container for the
// authentication core. It aggregates all sub-configurations and is populated
// by merging values from environment variables, command-line flags, an
// optional JSON file, and built-in defaults.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level policy: version, registration activation
	// and password complexity.
	App App `envPrefix:"APP_"`

	// Tokens holds signing secrets and lifetimes for both token kinds,
	// plus session and recovery lifetimes.
	Tokens Tokens `envPrefix:"TOKENS_"`

	// Storage selects and configures the key-value backend.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds network address and timeout settings for the HTTP server.
	Server Server `envPrefix:"SERVER_"`

	// RateLimits holds the per-action limiter policies.
	RateLimits RateLimits `envPrefix:"RATE_LIMITS_"`

	// Workers holds configuration for background maintenance.
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged below values already
	// loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level policy choices.
type App struct {
	// Version is the semantic version string of the running application.
	// Env: APP_VERSION
	Version string `env:"VERSION"`

	// RegistrationPolicy is either [RegistrationAutoActivate] or
	// [RegistrationPendingApproval].
	// Env: APP_REGISTRATION_POLICY
	RegistrationPolicy string `env:"REGISTRATION_POLICY"`

	// PasswordMinLength is the minimum accepted password length.
	// Env: APP_PASSWORD_MIN_LENGTH
	PasswordMinLength int `env:"PASSWORD_MIN_LENGTH"`

	// PasswordClasses lists the required character classes as a
	// comma-separated subset of "upper,lower,digit,symbol". The exact
	// policy is a product decision, so it is configuration rather than a
	// hard-coded rule.
	// Env: APP_PASSWORD_CLASSES
	PasswordClasses string `env:"PASSWORD_CLASSES"`
}

// Tokens holds token, session, and recovery lifecycle settings. Access and
// refresh tokens are signed with distinct secrets; validation rejects a
// configuration where the two match.
type Tokens struct {
	// AccessSecret signs short-lived access tokens.
	// Env: TOKENS_ACCESS_SECRET
	AccessSecret string `env:"ACCESS_SECRET"`

	// RefreshSecret signs refresh tokens. Must differ from AccessSecret.
	// Env: TOKENS_REFRESH_SECRET
	RefreshSecret string `env:"REFRESH_SECRET"`

	// Issuer is the "iss" claim embedded in every issued token.
	// Env: TOKENS_ISSUER
	Issuer string `env:"ISSUER"`

	// AccessDuration is the access-token lifetime (default 15m).
	// Env: TOKENS_ACCESS_DURATION
	AccessDuration time.Duration `env:"ACCESS_DURATION"`

	// RefreshDuration is the refresh-token lifetime (default 168h).
	// Env: TOKENS_REFRESH_DURATION
	RefreshDuration time.Duration `env:"REFRESH_DURATION"`

	// SessionDuration is the session lifetime, independent of token
	// lifetimes (default 24h).
	// Env: TOKENS_SESSION_DURATION
	SessionDuration time.Duration `env:"SESSION_DURATION"`

	// RecoveryDuration is the password-recovery token lifetime (default 1h).
	// Env: TOKENS_RECOVERY_DURATION
	RecoveryDuration time.Duration `env:"RECOVERY_DURATION"`

	// RefreshSoonWindow is how close to expiry an access token must be for
	// middleware to signal the client to refresh proactively (default 5m).
	// Env: TOKENS_REFRESH_SOON_WINDOW
	RefreshSoonWindow time.Duration `env:"REFRESH_SOON_WINDOW"`
}

// Storage selects the key-value backend and carries its connection settings.
// The backend is resolved exactly once at startup; business logic never
// re-derives environment facts per call.
type Storage struct {
	// Backend is one of [BackendMemory], [BackendPostgres], [BackendSQLite],
	// [BackendRedis].
	// Env: STORAGE_BACKEND
	Backend string `env:"BACKEND"`

	// DB holds the relational database connection settings
	// (postgres and sqlite backends).
	DB DB `envPrefix:"DB_"`

	// Redis holds the hosted KV connection settings (redis backend).
	Redis Redis `envPrefix:"REDIS_"`
}

// DB holds connection settings for the relational backend.
type DB struct {
	// DSN is the driver connection string: a PostgreSQL URI for the
	// postgres backend, a file path for sqlite.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Redis holds connection settings for the hosted KV backend.
type Redis struct {
	// URL is a redis:// connection URL.
	// Env: STORAGE_REDIS_URL
	URL string `env:"URL"`
}

// Server holds network and timeout settings for the inbound transport layer.
type Server struct {
	// HTTPAddress is the TCP address on which the HTTP server listens,
	// in "host:port" format (e.g. "0.0.0.0:8080").
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the maximum duration allowed for a single inbound
	// request before the server cancels it (e.g. "30s", "1m").
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// RateLimitPolicy is one action's limiter policy: at most MaxAttempts within
// Window, then a timed block of BlockDuration.
type RateLimitPolicy struct {
	Window        time.Duration `env:"WINDOW" json:"window"`
	MaxAttempts   int           `env:"MAX_ATTEMPTS" json:"max_attempts"`
	BlockDuration time.Duration `env:"BLOCK_DURATION" json:"block_duration"`
}

// RateLimits groups the per-action limiter policies. The numbers are policy
// constants and must be overridable per deployment.
type RateLimits struct {
	// Login defaults to 15m window / 5 attempts / 30m block.
	Login RateLimitPolicy `envPrefix:"LOGIN_"`

	// Registration defaults to 1h window / 3 attempts / 2h block.
	Registration RateLimitPolicy `envPrefix:"REGISTRATION_"`

	// PasswordReset defaults to 1h window / 3 attempts / 24h block.
	PasswordReset RateLimitPolicy `envPrefix:"PASSWORD_RESET_"`
}

// Workers holds configuration for background maintenance workers.
type Workers struct {
	// SweepSchedule is a cron spec (robfig/cron syntax, "@every 10m"
	// shorthand accepted) for the expiry sweep.
	// Env: WORKERS_SWEEP_SCHEDULE
	SweepSchedule string `env:"SWEEP_SCHEDULE"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (earlier sources win for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//  4. Built-in defaults
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		withDefaults().
		build()
}
