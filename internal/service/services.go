package service

import (
	"context"

	"github.com/consultamed/auth-core/internal/config"
	"github.com/consultamed/auth-core/internal/kvstore"
	"github.com/consultamed/auth-core/internal/logger"
)

// Services bundles every service implementation behind its interface for
// handler and worker wiring.
type Services struct {
	AuthService    AuthService
	TokenService   TokenService
	SessionService SessionService
	AuditService   AuditService
	RateLimiter    RateLimiter
	AppInfoService AppInfoService
}

// NewServices wires the full service graph on top of a Records store.
func NewServices(records *kvstore.Records, cfg *config.StructuredConfig, log *logger.Logger) *Services {
	audit := NewAuditService(records, log)
	tokens := NewTokenService(records, cfg, log)
	sessions := NewSessionService(records, cfg.Tokens.SessionDuration, log)
	limiter := NewRateLimiter(records, audit, cfg.RateLimits, log)
	auth := NewAuthService(records, tokens, sessions, audit, cfg, log)

	return &Services{
		AuthService:    auth,
		TokenService:   tokens,
		SessionService: sessions,
		AuditService:   audit,
		RateLimiter:    limiter,
		AppInfoService: NewAppInfoService(cfg.App.Version),
	}
}

type appInfoService struct {
	version string
}

// NewAppInfoService returns an AppInfoService reporting the given version.
func NewAppInfoService(version string) AppInfoService {
	return &appInfoService{version: version}
}

func (s *appInfoService) GetAppVersion(_ context.Context) string {
	return s.version
}
