package service

import (
	"context"

	"github.com/consultamed/auth-core/models"
)

// AuthService orchestrates the full authentication lifecycle: credential
// verification, token issuance, session bookkeeping, and audit logging for
// every flow.
//
// Expected failure modes (bad credentials, inactive account, duplicate
// registration, expired recovery token) are returned as the sentinel errors
// in this package, never panics; only storage faults surface as unexpected
// wrapped errors.
type AuthService interface {
	Login(ctx context.Context, req models.LoginRequest, client models.ClientInfo) (*models.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string, client models.ClientInfo) (*models.TokenPair, error)

	// Logout is best-effort and idempotent: it invalidates the named (or
	// the caller's own) session and revokes every outstanding refresh
	// token of the user. It never reports an error to the caller.
	Logout(ctx context.Context, identity models.Identity, sessionID string, client models.ClientInfo)

	Register(ctx context.Context, req models.RegisterRequest, client models.ClientInfo) (*models.RegisterResponse, error)

	// RequestPasswordRecovery returns the created recovery token, or nil
	// when the email does not resolve to an account. Callers must answer
	// identically in both cases to avoid account enumeration; delivery of
	// the token to the account holder is an external concern.
	RequestPasswordRecovery(ctx context.Context, email string, client models.ClientInfo) (*models.RecoveryToken, error)
	ResetPassword(ctx context.Context, token, newPassword string, client models.ClientInfo) error
}

// TokenService mints and verifies the two bearer-token kinds.
type TokenService interface {
	// IssuePair mints an access+refresh pair bound to the session and
	// persists the backing refresh-token record.
	IssuePair(ctx context.Context, user models.User, sessionID string, client models.ClientInfo) (models.TokenPair, error)

	// VerifyAccess checks signature, expiry, issuer, and audience.
	// Returns ErrInvalidToken on any failure; the precise reason (expired
	// vs malformed) is logged at debug level, not disclosed.
	VerifyAccess(ctx context.Context, tokenString string) (*models.AccessClaims, error)

	// ConsumeRefresh verifies a refresh token structurally, requires a
	// live backing record, and atomically retires it. Under concurrent
	// use of the same token, at most one caller succeeds; the rest get
	// ErrInvalidToken.
	ConsumeRefresh(ctx context.Context, tokenString string) (*models.RefreshClaims, error)

	// RevokeAllForUser removes every outstanding refresh-token record of
	// the user and returns how many were removed.
	RevokeAllForUser(ctx context.Context, userID string) (int, error)

	// IsExpiringSoon reports whether the access token is close enough to
	// expiry that the client should refresh proactively.
	IsExpiringSoon(claims *models.AccessClaims) bool
}

// SessionService manages session records, deliberately single-purpose:
// cascading refresh-token revocation on session end is AuthService's job.
type SessionService interface {
	Create(ctx context.Context, userID string, client models.ClientInfo) (models.Session, error)
	Get(ctx context.Context, sessionID string) (*models.Session, error)

	// Invalidate is idempotent; removing an unknown session is not an error.
	Invalidate(ctx context.Context, sessionID string) error
}

// AuditService appends security events. Record is fire-and-forget: it never
// fails the caller's path, and mirrors every entry to the structured log.
type AuditService interface {
	Record(ctx context.Context, entry models.AuditEntry)

	// Recent returns up to limit entries, newest first. Read access is
	// restricted to administrators at the transport layer.
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// RateLimiter gates repeated actions per identity. Check never returns an
// error: on a backing-store failure it fails open (the request is allowed)
// after logging and auditing the failure.
type RateLimiter interface {
	Check(ctx context.Context, action, identity string, client models.ClientInfo) models.RateLimitResult
}

// AppInfoService exposes application metadata (version).
type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}
