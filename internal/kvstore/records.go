package kvstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/models"
)

// Key namespace prefixes. The logical layout is shared by every backend:
//
//	users:<id>                       user records
//	users:email:<email>              email → user id index
//	licenses:<license>               license number → user id index
//	refresh_tokens:<tokenID>         refresh-token grants
//	sessions:<sessionID>             sessions
//	recovery:<token>                 password-recovery tokens
//	audit:<ts>:<action>:<actor>      audit trail
//	rate_limit:<action>:<identity>   limiter records
const (
	PrefixUsers         = "users:"
	PrefixUserEmails    = "users:email:"
	PrefixLicenses      = "licenses:"
	PrefixRefreshTokens = "refresh_tokens:"
	PrefixSessions      = "sessions:"
	PrefixRecovery      = "recovery:"
	PrefixAudit         = "audit:"
	PrefixRateLimit     = "rate_limit:"
)

// UserKey returns the storage key of a user record.
func UserKey(userID string) string { return PrefixUsers + userID }

// UserEmailKey returns the storage key of the email index entry.
func UserEmailKey(email string) string { return PrefixUserEmails + email }

// LicenseKey returns the storage key of the license index entry.
func LicenseKey(license string) string { return PrefixLicenses + license }

// RefreshTokenKey returns the storage key of a refresh-token record.
func RefreshTokenKey(tokenID string) string { return PrefixRefreshTokens + tokenID }

// SessionKey returns the storage key of a session record.
func SessionKey(sessionID string) string { return PrefixSessions + sessionID }

// RecoveryKey returns the storage key of a recovery-token record.
func RecoveryKey(token string) string { return PrefixRecovery + token }

// RateLimitKey returns the storage key of a limiter record.
func RateLimitKey(action, identity string) string {
	return PrefixRateLimit + action + ":" + identity
}

// AuditKey returns the storage key of an audit entry.
func AuditKey(entry models.AuditEntry) string {
	return fmt.Sprintf("%s%d:%s:%s", PrefixAudit, entry.Timestamp.UnixNano(), entry.Action, entry.Actor())
}

// Records is the typed record layer over a raw [KeyValueStore]. It owns the
// key layout and the (de)serialization of every record kind, so that
// malformed-data handling lives in exactly one place: a stored blob that no
// longer unmarshals is deleted and reported as [ErrRecordNotFound] instead of
// failing the request.
type Records struct {
	kv     KeyValueStore
	logger *logger.Logger
}

// NewRecords wraps the given store.
func NewRecords(kv KeyValueStore, logger *logger.Logger) *Records {
	return &Records{
		kv:     kv,
		logger: logger,
	}
}

// Store exposes the underlying raw store for operations that do not go
// through a typed record (health checks, sweepers).
func (r *Records) Store() KeyValueStore {
	return r.kv
}

// getRecord loads and unmarshals one record. A corrupted blob is deleted and
// treated as not found.
func getRecord[T any](ctx context.Context, r *Records, key string) (*T, error) {
	raw, err := r.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", key, err)
	}
	if raw == nil {
		return nil, ErrRecordNotFound
	}

	record := new(T)
	if err = json.Unmarshal(raw, record); err != nil {
		logger.FromContext(ctx).Err(err).Str("key", key).Msg("discarding unparseable record")
		_ = r.kv.Delete(ctx, key)
		return nil, ErrRecordNotFound
	}

	return record, nil
}

// putRecord marshals and stores one record.
func putRecord(ctx context.Context, r *Records, key string, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling %q: %w", key, err)
	}

	if err = r.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("storing %q: %w", key, err)
	}

	return nil
}

// ── users ──

func (r *Records) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return getRecord[models.User](ctx, r, UserKey(userID))
}

// GetUserByEmail resolves the email index and loads the user record.
// The email must already be normalized.
func (r *Records) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	raw, err := r.kv.Get(ctx, UserEmailKey(email))
	if err != nil {
		return nil, fmt.Errorf("loading email index: %w", err)
	}
	if raw == nil {
		return nil, ErrRecordNotFound
	}

	return r.GetUser(ctx, string(raw))
}

func (r *Records) PutUser(ctx context.Context, user models.User) error {
	return putRecord(ctx, r, UserKey(user.ID), user)
}

// ClaimEmail atomically claims the email index entry for a user. Exactly one
// concurrent claimer for the same email succeeds.
func (r *Records) ClaimEmail(ctx context.Context, email, userID string) (bool, error) {
	return r.kv.SetIfAbsent(ctx, UserEmailKey(email), []byte(userID))
}

// ReleaseEmail removes the email index entry; used to roll back a partial
// registration.
func (r *Records) ReleaseEmail(ctx context.Context, email string) error {
	return r.kv.Delete(ctx, UserEmailKey(email))
}

// ClaimLicense atomically claims the license index entry for a user.
func (r *Records) ClaimLicense(ctx context.Context, license, userID string) (bool, error) {
	return r.kv.SetIfAbsent(ctx, LicenseKey(license), []byte(userID))
}

// ── refresh tokens ──

func (r *Records) GetRefreshToken(ctx context.Context, tokenID string) (*models.RefreshTokenRecord, error) {
	return getRecord[models.RefreshTokenRecord](ctx, r, RefreshTokenKey(tokenID))
}

func (r *Records) PutRefreshToken(ctx context.Context, record models.RefreshTokenRecord) error {
	return putRecord(ctx, r, RefreshTokenKey(record.TokenID), record)
}

// ConsumeRefreshToken atomically removes the refresh-token record and reports
// whether this caller was the one to remove it. Under concurrent rotation of
// the same token, at most one caller observes true.
func (r *Records) ConsumeRefreshToken(ctx context.Context, tokenID string) (bool, error) {
	return r.kv.DeleteIfExists(ctx, RefreshTokenKey(tokenID))
}

// ListRefreshTokenKeys returns the keys of all outstanding refresh-token
// records.
func (r *Records) ListRefreshTokenKeys(ctx context.Context) ([]string, error) {
	return r.kv.List(ctx, PrefixRefreshTokens)
}

// ── sessions ──

func (r *Records) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return getRecord[models.Session](ctx, r, SessionKey(sessionID))
}

func (r *Records) PutSession(ctx context.Context, session models.Session) error {
	return putRecord(ctx, r, SessionKey(session.ID), session)
}

func (r *Records) DeleteSession(ctx context.Context, sessionID string) error {
	return r.kv.Delete(ctx, SessionKey(sessionID))
}

func (r *Records) ListSessionKeys(ctx context.Context) ([]string, error) {
	return r.kv.List(ctx, PrefixSessions)
}

// ── recovery tokens ──

func (r *Records) GetRecoveryToken(ctx context.Context, token string) (*models.RecoveryToken, error) {
	return getRecord[models.RecoveryToken](ctx, r, RecoveryKey(token))
}

func (r *Records) PutRecoveryToken(ctx context.Context, record models.RecoveryToken) error {
	return putRecord(ctx, r, RecoveryKey(record.Token), record)
}

// ConsumeRecoveryToken atomically removes the recovery token; a second
// consumer of the same token observes false.
func (r *Records) ConsumeRecoveryToken(ctx context.Context, token string) (bool, error) {
	return r.kv.DeleteIfExists(ctx, RecoveryKey(token))
}

func (r *Records) ListRecoveryKeys(ctx context.Context) ([]string, error) {
	return r.kv.List(ctx, PrefixRecovery)
}

// ── rate limits ──

func (r *Records) GetRateLimit(ctx context.Context, action, identity string) (*models.RateLimitRecord, error) {
	return getRecord[models.RateLimitRecord](ctx, r, RateLimitKey(action, identity))
}

func (r *Records) PutRateLimit(ctx context.Context, action, identity string, record models.RateLimitRecord) error {
	return putRecord(ctx, r, RateLimitKey(action, identity), record)
}

func (r *Records) DeleteRateLimit(ctx context.Context, key string) error {
	return r.kv.Delete(ctx, key)
}

func (r *Records) ListRateLimitKeys(ctx context.Context) ([]string, error) {
	return r.kv.List(ctx, PrefixRateLimit)
}

// ── audit ──

// PutAudit appends one audit entry. Entries are append-only: the key embeds
// a nanosecond timestamp, so writes never collide in practice.
func (r *Records) PutAudit(ctx context.Context, entry models.AuditEntry) error {
	return putRecord(ctx, r, AuditKey(entry), entry)
}

// GetAuditByKey loads one audit entry by its full storage key.
func (r *Records) GetAuditByKey(ctx context.Context, key string) (*models.AuditEntry, error) {
	return getRecord[models.AuditEntry](ctx, r, key)
}

// ListAuditKeys returns the keys of all stored audit entries. Keys embed a
// fixed-width nanosecond timestamp, so lexicographic order is chronological.
func (r *Records) ListAuditKeys(ctx context.Context) ([]string, error) {
	return r.kv.List(ctx, PrefixAudit)
}
