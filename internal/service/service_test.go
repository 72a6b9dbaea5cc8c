package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/consultamed/auth-core/internal/config"
	"github.com/consultamed/auth-core/internal/kvstore"
	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/models"
)

func testConfig() *config.StructuredConfig {
	return &config.StructuredConfig{
		App: config.App{
			Version:            "test",
			RegistrationPolicy: config.RegistrationAutoActivate,
			PasswordMinLength:  8,
			PasswordClasses:    "upper,lower,digit",
		},
		Tokens: config.Tokens{
			AccessSecret:      "test-access-secret",
			RefreshSecret:     "test-refresh-secret",
			Issuer:            "consultamed-auth",
			AccessDuration:    15 * time.Minute,
			RefreshDuration:   168 * time.Hour,
			SessionDuration:   24 * time.Hour,
			RecoveryDuration:  time.Hour,
			RefreshSoonWindow: 5 * time.Minute,
		},
		RateLimits: config.RateLimits{
			Login:         config.RateLimitPolicy{Window: 15 * time.Minute, MaxAttempts: 5, BlockDuration: 30 * time.Minute},
			Registration:  config.RateLimitPolicy{Window: time.Hour, MaxAttempts: 3, BlockDuration: 2 * time.Hour},
			PasswordReset: config.RateLimitPolicy{Window: time.Hour, MaxAttempts: 3, BlockDuration: 24 * time.Hour},
		},
	}
}

func newTestServices(t *testing.T) (*Services, *kvstore.Records) {
	t.Helper()

	records := kvstore.NewRecords(kvstore.NewMemoryStore(), logger.Nop())
	return NewServices(records, testConfig(), logger.Nop()), records
}

var testClient = models.ClientInfo{IPAddress: "203.0.113.7", UserAgent: "test-agent"}

func registerUser(t *testing.T, svc *Services, email, license string) models.User {
	t.Helper()

	resp, err := svc.AuthService.Register(context.Background(), models.RegisterRequest{
		Email:         email,
		Password:      "Str0ngPassw0rd",
		GivenName:     "Ana",
		FamilyName:    "García",
		Specialty:     "cardiología",
		LicenseNumber: license,
	}, testClient)
	require.NoError(t, err)

	return resp.User
}
