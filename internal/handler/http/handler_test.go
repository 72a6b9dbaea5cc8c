package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultamed/auth-core/internal/config"
	"github.com/consultamed/auth-core/internal/kvstore"
	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/internal/service"
	"github.com/consultamed/auth-core/models"
)

func testConfig() *config.StructuredConfig {
	return &config.StructuredConfig{
		App: config.App{
			Version:            "1.2.3",
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
		Server: config.Server{RequestTimeout: 30 * time.Second},
		RateLimits: config.RateLimits{
			Login:         config.RateLimitPolicy{Window: 15 * time.Minute, MaxAttempts: 5, BlockDuration: 30 * time.Minute},
			Registration:  config.RateLimitPolicy{Window: time.Hour, MaxAttempts: 3, BlockDuration: 2 * time.Hour},
			PasswordReset: config.RateLimitPolicy{Window: time.Hour, MaxAttempts: 3, BlockDuration: 24 * time.Hour},
		},
	}
}

type testEnv struct {
	router  *chi.Mux
	records *kvstore.Records
	svc     *service.Services
}

func newTestEnv(t *testing.T, cfg *config.StructuredConfig) *testEnv {
	t.Helper()

	records := kvstore.NewRecords(kvstore.NewMemoryStore(), logger.Nop())
	services := service.NewServices(records, cfg, logger.Nop())
	handler := NewHandler(services, NewMetrics(), cfg.Server.RequestTimeout, logger.Nop())

	return &testEnv{
		router:  handler.Init(),
		records: records,
		svc:     services,
	}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:51234"
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email, license string) models.RegisterResponse {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Email:         email,
		Password:      "Str0ngPassw0rd",
		GivenName:     "Ana",
		FamilyName:    "García",
		LicenseNumber: license,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp models.RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t, testConfig())

	resp := env.register(t, "medico@hospital.mx", "CED-1")
	assert.Equal(t, "medico@hospital.mx", resp.User.Email)
	require.NotNil(t, resp.Tokens)

	t.Run("duplicate email answers 409", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
			Email:         "medico@hospital.mx",
			Password:      "Str0ngPassw0rd",
			GivenName:     "Eva",
			FamilyName:    "Ruiz",
			LicenseNumber: "CED-2",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, CodeEmailAlreadyExists, decodeError(t, rec).Error.Code)
	})

	t.Run("validation failure answers 400 with fields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{Email: "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		errResp := decodeError(t, rec)
		assert.Equal(t, CodeValidationError, errResp.Error.Code)
		assert.Contains(t, errResp.Error.Fields, "password")
	})

	t.Run("malformed JSON answers 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("{no json"))
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.register(t, "medico@hospital.mx", "CED-1")

	t.Run("success", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
			Email:    "medico@hospital.mx",
			Password: "Str0ngPassw0rd",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Tokens.AccessToken)
		assert.NotEmpty(t, resp.Session.ID)

		// the stored hash never reaches the wire
		assert.NotContains(t, rec.Body.String(), "passwordHash")

		// hardening headers ride on every response
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
		assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
	})

	t.Run("wrong password answers 401", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
			Email:    "medico@hospital.mx",
			Password: "Incorrecta123",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, CodeInvalidCredentials, decodeError(t, rec).Error.Code)
	})

	t.Run("deactivated account answers 401 ACCOUNT_INACTIVE", func(t *testing.T) {
		baja := env.register(t, "baja@hospital.mx", "CED-3")

		stored, err := env.records.GetUser(context.Background(), baja.User.ID)
		require.NoError(t, err)
		stored.Active = false
		require.NoError(t, env.records.PutUser(context.Background(), *stored))

		rec := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
			Email:    "baja@hospital.mx",
			Password: "Str0ngPassw0rd",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, CodeAccountInactive, decodeError(t, rec).Error.Code)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestEnv(t, testConfig())
	reg := env.register(t, "medico@hospital.mx", "CED-1")

	rec := env.do(t, http.MethodPost, "/api/auth/refresh", "", models.RefreshRequest{
		RefreshToken: reg.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var pair models.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	assert.NotEmpty(t, pair.AccessToken)

	t.Run("replaying the rotated token answers 401", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/refresh", "", models.RefreshRequest{
			RefreshToken: reg.Tokens.RefreshToken,
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, CodeInvalidToken, decodeError(t, rec).Error.Code)
	})

	t.Run("missing token answers 400", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/refresh", "", models.RefreshRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, CodeNoToken, decodeError(t, rec).Error.Code)
	})
}

func TestSessionEndpoint(t *testing.T) {
	env := newTestEnv(t, testConfig())
	reg := env.register(t, "medico@hospital.mx", "CED-1")

	t.Run("echoes the caller's session", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/session", reg.Tokens.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var info models.SessionInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		assert.Equal(t, reg.Session.ID, info.ID)
	})

	t.Run("no token answers 401 NO_TOKEN", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/session", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, CodeNoToken, decodeError(t, rec).Error.Code)
	})

	t.Run("garbage token answers 401 INVALID_TOKEN", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/session", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, CodeInvalidToken, decodeError(t, rec).Error.Code)
	})

	t.Run("a non-bearer scheme answers 401 NO_TOKEN", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		req.Header.Set("Authorization", "Basic "+reg.Tokens.AccessToken)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, CodeNoToken, decodeError(t, rec).Error.Code)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	env := newTestEnv(t, testConfig())
	reg := env.register(t, "medico@hospital.mx", "CED-1")

	rec := env.do(t, http.MethodPost, "/api/auth/logout", reg.Tokens.AccessToken, models.LogoutRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true}`, rec.Body.String())

	// the session is gone
	rec = env.do(t, http.MethodGet, "/api/auth/session", reg.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// and the refresh token is revoked
	rec = env.do(t, http.MethodPost, "/api/auth/refresh", "", models.RefreshRequest{
		RefreshToken: reg.Tokens.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecoveryEndpoints(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.register(t, "medico@hospital.mx", "CED-1")

	t.Run("known and unknown emails answer identically", func(t *testing.T) {
		known := env.do(t, http.MethodPost, "/api/auth/recover", "", models.RecoverRequest{Email: "medico@hospital.mx"})
		unknown := env.do(t, http.MethodPost, "/api/auth/recover", "", models.RecoverRequest{Email: "nadie@hospital.mx"})

		assert.Equal(t, http.StatusAccepted, known.Code)
		assert.Equal(t, http.StatusAccepted, unknown.Code)
		assert.JSONEq(t, known.Body.String(), unknown.Body.String())
	})

	t.Run("reset with the recovery token", func(t *testing.T) {
		token, err := env.svc.AuthService.RequestPasswordRecovery(context.Background(),
			"medico@hospital.mx", models.ClientInfo{})
		require.NoError(t, err)
		require.NotNil(t, token)

		rec := env.do(t, http.MethodPost, "/api/auth/reset", "", models.ResetPasswordRequest{
			Token:       token.Token,
			NewPassword: "NuevaClave99",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		login := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
			Email:    "medico@hospital.mx",
			Password: "NuevaClave99",
		})
		assert.Equal(t, http.StatusOK, login.Code)
	})

	t.Run("unknown reset token answers 401", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/reset", "", models.ResetPasswordRequest{
			Token:       "no-such-token",
			NewPassword: "NuevaClave99",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, CodeInvalidToken, decodeError(t, rec).Error.Code)
	})
}

func TestAuditTrailEndpoint(t *testing.T) {
	env := newTestEnv(t, testConfig())
	reg := env.register(t, "medico@hospital.mx", "CED-1")

	t.Run("a practitioner is refused", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/admin/audit", reg.Tokens.AccessToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, CodeInsufficientRole, decodeError(t, rec).Error.Code)
	})

	t.Run("an administrator reads the trail newest first", func(t *testing.T) {
		admin := env.register(t, "jefa@hospital.mx", "CED-2")

		stored, err := env.records.GetUser(context.Background(), admin.User.ID)
		require.NoError(t, err)
		stored.Role = models.RoleAdministrator
		require.NoError(t, env.records.PutUser(context.Background(), *stored))

		login := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
			Email:    "jefa@hospital.mx",
			Password: "Str0ngPassw0rd",
		})
		require.Equal(t, http.StatusOK, login.Code)
		var loginResp models.LoginResponse
		require.NoError(t, json.Unmarshal(login.Body.Bytes(), &loginResp))

		rec := env.do(t, http.MethodGet, "/api/admin/audit?limit=5", loginResp.Tokens.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var entries []models.AuditEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		require.NotEmpty(t, entries)

		actions := make([]string, 0, len(entries))
		for _, entry := range entries {
			actions = append(actions, entry.Action)
		}
		assert.Contains(t, actions, models.AuditActionLogin)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.register(t, "medico@hospital.mx", "CED-1")

	bad := models.LoginRequest{Email: "medico@hospital.mx", Password: "Incorrecta123"}
	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", bad)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", bad)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	errResp := decodeError(t, rec)
	assert.Equal(t, CodeRateLimitExceeded, errResp.Error.Code)
	assert.Positive(t, errResp.RetryAfter)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// even correct credentials are refused while blocked
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email:    "medico@hospital.mx",
		Password: "Str0ngPassw0rd",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRefreshRequiredHeader(t *testing.T) {
	cfg := testConfig()
	// shorter lifetime than the refresh window marks every token as expiring
	cfg.Tokens.AccessDuration = 4 * time.Minute
	env := newTestEnv(t, cfg)
	reg := env.register(t, "medico@hospital.mx", "CED-1")

	rec := env.do(t, http.MethodGet, "/api/auth/session", reg.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(refreshRequiredHeader))
}

func TestVersionEndpoint(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/version", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"version":"1.2.3"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.register(t, "medico@hospital.mx", "CED-1")

	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth_attempts_total")
}
