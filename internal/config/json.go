package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] with JSON tags and
// string-friendly durations, so deployments can keep policy in a checked-in
// JSON file.
type StructuredJSONConfig struct {
	App struct {
		Version            string `json:"version"`
		RegistrationPolicy string `json:"registration_policy"`
		PasswordMinLength  int    `json:"password_min_length"`
		PasswordClasses    string `json:"password_classes"`
	} `json:"app,omitempty"`

	Tokens struct {
		AccessSecret      string   `json:"access_secret"`
		RefreshSecret     string   `json:"refresh_secret"`
		Issuer            string   `json:"issuer"`
		AccessDuration    Duration `json:"access_duration"`
		RefreshDuration   Duration `json:"refresh_duration"`
		SessionDuration   Duration `json:"session_duration"`
		RecoveryDuration  Duration `json:"recovery_duration"`
		RefreshSoonWindow Duration `json:"refresh_soon_window"`
	} `json:"tokens,omitempty"`

	Storage struct {
		Backend string `json:"backend"`
		DB      struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
		Redis struct {
			URL string `json:"url"`
		} `json:"redis,omitempty"`
	} `json:"storage,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`

	RateLimits struct {
		Login         jsonRateLimitPolicy `json:"login,omitempty"`
		Registration  jsonRateLimitPolicy `json:"registration,omitempty"`
		PasswordReset jsonRateLimitPolicy `json:"password_reset,omitempty"`
	} `json:"rate_limits,omitempty"`

	Workers struct {
		SweepSchedule string `json:"sweep_schedule"`
	} `json:"workers,omitempty"`
}

type jsonRateLimitPolicy struct {
	Window        Duration `json:"window"`
	MaxAttempts   int      `json:"max_attempts"`
	BlockDuration Duration `json:"block_duration"`
}

func (p jsonRateLimitPolicy) toPolicy() RateLimitPolicy {
	return RateLimitPolicy{
		Window:        time.Duration(p.Window),
		MaxAttempts:   p.MaxAttempts,
		BlockDuration: time.Duration(p.BlockDuration),
	}
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			Version:            jsonCfg.App.Version,
			RegistrationPolicy: jsonCfg.App.RegistrationPolicy,
			PasswordMinLength:  jsonCfg.App.PasswordMinLength,
			PasswordClasses:    jsonCfg.App.PasswordClasses,
		},
		Tokens: Tokens{
			AccessSecret:      jsonCfg.Tokens.AccessSecret,
			RefreshSecret:     jsonCfg.Tokens.RefreshSecret,
			Issuer:            jsonCfg.Tokens.Issuer,
			AccessDuration:    time.Duration(jsonCfg.Tokens.AccessDuration),
			RefreshDuration:   time.Duration(jsonCfg.Tokens.RefreshDuration),
			SessionDuration:   time.Duration(jsonCfg.Tokens.SessionDuration),
			RecoveryDuration:  time.Duration(jsonCfg.Tokens.RecoveryDuration),
			RefreshSoonWindow: time.Duration(jsonCfg.Tokens.RefreshSoonWindow),
		},
		Storage: Storage{
			Backend: jsonCfg.Storage.Backend,
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
			Redis: Redis{
				URL: jsonCfg.Storage.Redis.URL,
			},
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
		RateLimits: RateLimits{
			Login:         jsonCfg.RateLimits.Login.toPolicy(),
			Registration:  jsonCfg.RateLimits.Registration.toPolicy(),
			PasswordReset: jsonCfg.RateLimits.PasswordReset.toPolicy(),
		},
		Workers: Workers{
			SweepSchedule: jsonCfg.Workers.SweepSchedule,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
