package config

import (
	"errors"
	"fmt"
	"time"

	"dario.cat/mergo"
)

type configBuilder struct {
	configs []*StructuredConfig
	err     error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{
		configs: make([]*StructuredConfig, 0, 4),
	}
}

func (b *configBuilder) build() (*StructuredConfig, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	config := new(StructuredConfig)
	for _, cfg := range b.configs {
		if err := mergo.Merge(config, cfg); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	return config, config.validate()
}

func (b *configBuilder) withEnv() *configBuilder {
	envCfg := &StructuredConfig{}
	if err := parseEnv(envCfg); err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	b.configs = append(b.configs, envCfg)
	return b
}

func (b *configBuilder) withFlags() *configBuilder {
	flags := ParseFlags()

	b.configs = append(b.configs, flags)
	return b
}

func (b *configBuilder) withJSON() *configBuilder {
	var jsonPath string
	isJSONSpecified := false

	for _, cfg := range b.configs {
		if cfg.JSONFilePath != "" {
			isJSONSpecified = true
			jsonPath = cfg.JSONFilePath
		}
	}

	if isJSONSpecified {
		jsonCfg, err := parseJSON(jsonPath)
		if err != nil {
			b.err = errors.Join(b.err, err)
			return b
		}
		b.configs = append(b.configs, jsonCfg)
	}

	return b
}

// withDefaults appends the built-in defaults as the lowest-priority source:
// any field left zero by env, flags, and JSON falls back to these values.
func (b *configBuilder) withDefaults() *configBuilder {
	b.configs = append(b.configs, defaults())
	return b
}

// defaults returns the built-in policy constants: token, session and recovery
// lifetimes, per-action rate-limit policies, and the registration and
// password policies used when a deployment does not override them.
func defaults() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			Version:            "0.0.0",
			RegistrationPolicy: RegistrationAutoActivate,
			PasswordMinLength:  8,
			PasswordClasses:    "upper,lower,digit",
		},
		Tokens: Tokens{
			Issuer:            "consultamed-auth",
			AccessDuration:    15 * time.Minute,
			RefreshDuration:   7 * 24 * time.Hour,
			SessionDuration:   24 * time.Hour,
			RecoveryDuration:  time.Hour,
			RefreshSoonWindow: 5 * time.Minute,
		},
		Storage: Storage{
			Backend: BackendMemory,
		},
		Server: Server{
			HTTPAddress:    "0.0.0.0:8080",
			RequestTimeout: 30 * time.Second,
		},
		RateLimits: RateLimits{
			Login: RateLimitPolicy{
				Window:        15 * time.Minute,
				MaxAttempts:   5,
				BlockDuration: 30 * time.Minute,
			},
			Registration: RateLimitPolicy{
				Window:        time.Hour,
				MaxAttempts:   3,
				BlockDuration: 2 * time.Hour,
			},
			PasswordReset: RateLimitPolicy{
				Window:        time.Hour,
				MaxAttempts:   3,
				BlockDuration: 24 * time.Hour,
			},
		},
		Workers: Workers{
			SweepSchedule: "@every 10m",
		},
	}
}
