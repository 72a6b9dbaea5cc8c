package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/models"
)

func newTestRecords(t *testing.T) (*Records, *MemoryStore) {
	t.Helper()
	kv := NewMemoryStore()
	return NewRecords(kv, logger.Nop()), kv
}

func TestRecords_UserRoundTrip(t *testing.T) {
	ctx := context.Background()
	records, _ := newTestRecords(t)

	user := models.User{
		ID:            "u1",
		Email:         "doctor@example.com",
		Role:          models.RolePractitioner,
		LicenseNumber: "MED-001",
		Active:        true,
		Verified:      true,
		CreatedAt:     time.Now().UTC(),
	}

	require.NoError(t, records.PutUser(ctx, user))

	loaded, err := records.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, user.Email, loaded.Email)
	assert.Equal(t, user.LicenseNumber, loaded.LicenseNumber)
}

func TestRecords_GetUser_MissingReturnsNotFound(t *testing.T) {
	records, _ := newTestRecords(t)

	_, err := records.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

// TestRecords_CorruptedRecordIsDiscarded verifies the centralized
// malformed-data policy: an unparseable blob is deleted and reported as
// not found rather than failing the request.
func TestRecords_CorruptedRecordIsDiscarded(t *testing.T) {
	ctx := context.Background()
	records, kv := newTestRecords(t)

	require.NoError(t, kv.Set(ctx, UserKey("u1"), []byte("{not json")))

	_, err := records.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	// the corrupt blob is gone
	raw, err := kv.Get(ctx, UserKey("u1"))
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestRecords_GetUserByEmail(t *testing.T) {
	ctx := context.Background()
	records, _ := newTestRecords(t)

	user := models.User{ID: "u1", Email: "doctor@example.com"}
	require.NoError(t, records.PutUser(ctx, user))

	claimed, err := records.ClaimEmail(ctx, user.Email, user.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	loaded, err := records.GetUserByEmail(ctx, "doctor@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", loaded.ID)

	_, err = records.GetUserByEmail(ctx, "other@example.com")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecords_ClaimEmail_SecondClaimLoses(t *testing.T) {
	ctx := context.Background()
	records, _ := newTestRecords(t)

	claimed, err := records.ClaimEmail(ctx, "doctor@example.com", "u1")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = records.ClaimEmail(ctx, "doctor@example.com", "u2")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestRecords_ConsumeRefreshToken_SingleWinner(t *testing.T) {
	ctx := context.Background()
	records, _ := newTestRecords(t)

	record := models.RefreshTokenRecord{
		TokenID:   "t1",
		UserID:    "u1",
		SessionID: "s1",
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		Active:    true,
	}
	require.NoError(t, records.PutRefreshToken(ctx, record))

	consumed, err := records.ConsumeRefreshToken(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, consumed)

	consumed, err = records.ConsumeRefreshToken(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestRecords_ConsumeRecoveryToken(t *testing.T) {
	ctx := context.Background()
	records, _ := newTestRecords(t)

	token := models.RecoveryToken{
		Token:     "r1",
		UserID:    "u1",
		Email:     "doctor@example.com",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, records.PutRecoveryToken(ctx, token))

	consumed, err := records.ConsumeRecoveryToken(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, consumed)

	consumed, err = records.ConsumeRecoveryToken(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestAuditKey_AnonymousActor(t *testing.T) {
	entry := models.AuditEntry{
		Action:    models.AuditActionLogin,
		Timestamp: time.Unix(0, 42),
	}

	assert.Equal(t, "audit:42:login:anonymous", AuditKey(entry))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "rate_limit:login:10.0.0.1", RateLimitKey("login", "10.0.0.1"))
}
