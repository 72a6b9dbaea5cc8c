// SPDX-License-Identifier: Apache-2.0

package config

import "fmt"

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or a descriptive error otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.Tokens.AccessSecret == "" || cfg.Tokens.RefreshSecret == "" {
		return ErrMissingTokenSecrets
	}

	if cfg.Tokens.AccessSecret == cfg.Tokens.RefreshSecret {
		return ErrSharedTokenSecret
	}

	switch cfg.Storage.Backend {
	case BackendMemory:
	case BackendPostgres, BackendSQLite:
		if cfg.Storage.DB.DSN == "" {
			return ErrInvalidStorageConfigs
		}
	case BackendRedis:
		if cfg.Storage.Redis.URL == "" {
			return ErrInvalidStorageConfigs
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidStorageConfigs, cfg.Storage.Backend)
	}

	if cfg.App.RegistrationPolicy != RegistrationAutoActivate &&
		cfg.App.RegistrationPolicy != RegistrationPendingApproval {
		return fmt.Errorf("%w: unknown registration policy %q", ErrInvalidAppConfigs, cfg.App.RegistrationPolicy)
	}

	for _, policy := range []RateLimitPolicy{
		cfg.RateLimits.Login,
		cfg.RateLimits.Registration,
		cfg.RateLimits.PasswordReset,
	} {
		if policy.Window <= 0 || policy.MaxAttempts <= 0 || policy.BlockDuration <= 0 {
			return ErrInvalidRateLimitConfigs
		}
	}

	return nil
}
