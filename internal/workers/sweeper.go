// SPDX-License-Identifier: Apache-2.0

package workers

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/consultamed/auth-core/internal/config"
	"github.com/consultamed/auth-core/internal/kvstore"
	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/models"
)

// staleRateLimitAge bounds how long a limiter record of an unknown action is
// kept after its last attempt.
const staleRateLimitAge = 24 * time.Hour

// ExpirySweeper periodically removes dead records: expired sessions, expired
// or revoked refresh-token grants, expired recovery tokens, and limiter
// records whose window and block have both elapsed.
//
// Expiry is otherwise enforced lazily on read; the sweep keeps the key space
// from accumulating records nobody will ever read again.
type ExpirySweeper struct {
	records  *kvstore.Records
	schedule string
	policies map[string]config.RateLimitPolicy
	logger   *logger.Logger

	now func() time.Time
}

// sweepStats counts removed records per kind for the completion log line.
type sweepStats struct {
	Sessions       int
	RefreshTokens  int
	RecoveryTokens int
	RateLimits     int
}

// NewExpirySweeper builds the sweeper with a cron schedule
// ("@every 10m" shorthand accepted).
func NewExpirySweeper(records *kvstore.Records, schedule string, limits config.RateLimits, log *logger.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		records:  records,
		schedule: schedule,
		policies: map[string]config.RateLimitPolicy{
			models.ActionLogin:         limits.Login,
			models.ActionRegistration:  limits.Registration,
			models.ActionPasswordReset: limits.PasswordReset,
		},
		logger: log,
		now:    time.Now,
	}
}

// Run schedules the periodic sweep. It returns immediately; the cron runner
// owns its own goroutine.
func (s *ExpirySweeper) Run() {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(s.schedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		s.logger.Err(err).Str("schedule", s.schedule).Msg("invalid sweep schedule, sweeper disabled")
		return
	}

	scheduler.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("expiry sweeper started")
}

// Sweep removes every dead record once. Individual failures are logged and
// skipped so one bad record never stalls the rest of the sweep.
func (s *ExpirySweeper) Sweep(ctx context.Context) sweepStats {
	now := s.now()
	stats := sweepStats{
		Sessions:       s.sweepSessions(ctx, now),
		RefreshTokens:  s.sweepRefreshTokens(ctx, now),
		RecoveryTokens: s.sweepRecoveryTokens(ctx, now),
		RateLimits:     s.sweepRateLimits(ctx, now),
	}

	s.logger.Info().
		Int("sessions", stats.Sessions).
		Int("refresh_tokens", stats.RefreshTokens).
		Int("recovery_tokens", stats.RecoveryTokens).
		Int("rate_limits", stats.RateLimits).
		Msg("expiry sweep finished")

	return stats
}

func (s *ExpirySweeper) sweepSessions(ctx context.Context, now time.Time) int {
	keys, err := s.records.ListSessionKeys(ctx)
	if err != nil {
		s.logger.Err(err).Msg("sweep: listing sessions")
		return 0
	}

	removed := 0
	for _, key := range keys {
		id := strings.TrimPrefix(key, kvstore.PrefixSessions)
		session, err := s.records.GetSession(ctx, id)
		if err != nil {
			continue
		}
		if !session.Expired(now) {
			continue
		}
		if err = s.records.DeleteSession(ctx, id); err != nil {
			s.logger.Err(err).Str("session_id", id).Msg("sweep: deleting session")
			continue
		}
		removed++
	}
	return removed
}

func (s *ExpirySweeper) sweepRefreshTokens(ctx context.Context, now time.Time) int {
	keys, err := s.records.ListRefreshTokenKeys(ctx)
	if err != nil {
		s.logger.Err(err).Msg("sweep: listing refresh tokens")
		return 0
	}

	removed := 0
	for _, key := range keys {
		id := strings.TrimPrefix(key, kvstore.PrefixRefreshTokens)
		record, err := s.records.GetRefreshToken(ctx, id)
		if err != nil {
			continue
		}
		if record.Usable(now) {
			continue
		}
		gone, err := s.records.ConsumeRefreshToken(ctx, id)
		if err != nil {
			s.logger.Err(err).Str("token_id", id).Msg("sweep: deleting refresh token")
			continue
		}
		if gone {
			removed++
		}
	}
	return removed
}

func (s *ExpirySweeper) sweepRecoveryTokens(ctx context.Context, now time.Time) int {
	keys, err := s.records.ListRecoveryKeys(ctx)
	if err != nil {
		s.logger.Err(err).Msg("sweep: listing recovery tokens")
		return 0
	}

	removed := 0
	for _, key := range keys {
		token := strings.TrimPrefix(key, kvstore.PrefixRecovery)
		record, err := s.records.GetRecoveryToken(ctx, token)
		if err != nil {
			continue
		}
		if !record.Expired(now) {
			continue
		}
		gone, err := s.records.ConsumeRecoveryToken(ctx, token)
		if err != nil {
			s.logger.Err(err).Msg("sweep: deleting recovery token")
			continue
		}
		if gone {
			removed++
		}
	}
	return removed
}

func (s *ExpirySweeper) sweepRateLimits(ctx context.Context, now time.Time) int {
	keys, err := s.records.ListRateLimitKeys(ctx)
	if err != nil {
		s.logger.Err(err).Msg("sweep: listing rate limits")
		return 0
	}

	removed := 0
	for _, key := range keys {
		rest := strings.TrimPrefix(key, kvstore.PrefixRateLimit)
		action, identity, found := strings.Cut(rest, ":")
		if !found {
			continue
		}

		record, err := s.records.GetRateLimit(ctx, action, identity)
		if err != nil {
			continue
		}
		if record.Blocked(now) {
			continue
		}

		age := staleRateLimitAge
		if policy, known := s.policies[action]; known && policy.Window > 0 {
			age = policy.Window
		}
		if now.Sub(record.LastAttempt) <= age {
			continue
		}

		if err = s.records.DeleteRateLimit(ctx, key); err != nil {
			s.logger.Err(err).Str("key", key).Msg("sweep: deleting rate limit")
			continue
		}
		removed++
	}
	return removed
}
