// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/consultamed/auth-core/internal/config"
	"github.com/consultamed/auth-core/internal/kvstore"
	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/models"
)

type rateLimiterService struct {
	records  *kvstore.Records
	audit    AuditService
	policies map[string]config.RateLimitPolicy
	logger   *logger.Logger

	now func() time.Time
}

// NewRateLimiter builds the RateLimiter from the per-action policies.
func NewRateLimiter(records *kvstore.Records, audit AuditService, cfg config.RateLimits, log *logger.Logger) RateLimiter {
	return &rateLimiterService{
		records: records,
		audit:   audit,
		policies: map[string]config.RateLimitPolicy{
			models.ActionLogin:         cfg.Login,
			models.ActionRegistration:  cfg.Registration,
			models.ActionPasswordReset: cfg.PasswordReset,
		},
		logger: log,
		now:    time.Now,
	}
}

// Check applies the limiter policy for one action+identity composite.
//
// Availability beats strictness: when the backing store cannot be read or
// written, the attempt is allowed and the failure is logged and audited.
func (s *rateLimiterService) Check(ctx context.Context, action, identity string, client models.ClientInfo) models.RateLimitResult {
	policy, known := s.policies[action]
	if !known || policy.MaxAttempts <= 0 {
		return models.RateLimitResult{Allowed: true}
	}

	now := s.now()

	record, err := s.records.GetRateLimit(ctx, action, identity)
	if err != nil && !errors.Is(err, kvstore.ErrRecordNotFound) {
		return s.failOpen(ctx, action, identity, client, policy, err)
	}

	if record != nil && record.Blocked(now) {
		// attempts against an active block are security events too
		s.audit.Record(ctx, models.AuditEntry{
			Action:    models.AuditActionRateLimit,
			Resource:  action,
			IPAddress: client.IPAddress,
			UserAgent: client.UserAgent,
			Success:   true,
			Metadata: map[string]string{
				"identity":      identity,
				"reason":        "attempt_while_blocked",
				"blocked_until": record.BlockedUntil.Format(time.RFC3339),
			},
		})

		return models.RateLimitResult{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: record.BlockedUntil.Sub(now),
			ResetAt:    *record.BlockedUntil,
		}
	}

	// start a fresh window after a miss, an elapsed window, or an expired block
	if record == nil || now.Sub(record.FirstAttempt) > policy.Window {
		fresh := models.RateLimitRecord{
			Count:        1,
			FirstAttempt: now,
			LastAttempt:  now,
		}
		if err = s.records.PutRateLimit(ctx, action, identity, fresh); err != nil {
			return s.failOpen(ctx, action, identity, client, policy, err)
		}

		return models.RateLimitResult{
			Allowed:   true,
			Remaining: policy.MaxAttempts - 1,
			ResetAt:   now.Add(policy.Window),
		}
	}

	record.Count++
	record.LastAttempt = now

	if record.Count > policy.MaxAttempts {
		blockedUntil := now.Add(policy.BlockDuration)
		record.BlockedUntil = &blockedUntil
		if err = s.records.PutRateLimit(ctx, action, identity, *record); err != nil {
			return s.failOpen(ctx, action, identity, client, policy, err)
		}

		s.audit.Record(ctx, models.AuditEntry{
			Action:    models.AuditActionRateLimit,
			Resource:  action,
			IPAddress: client.IPAddress,
			UserAgent: client.UserAgent,
			Success:   true,
			Metadata: map[string]string{
				"identity":      identity,
				"attempts":      strconv.Itoa(record.Count),
				"blocked_until": blockedUntil.Format(time.RFC3339),
			},
		})

		return models.RateLimitResult{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: policy.BlockDuration,
			ResetAt:    blockedUntil,
		}
	}

	if err = s.records.PutRateLimit(ctx, action, identity, *record); err != nil {
		return s.failOpen(ctx, action, identity, client, policy, err)
	}

	return models.RateLimitResult{
		Allowed:   true,
		Remaining: policy.MaxAttempts - record.Count,
		ResetAt:   record.FirstAttempt.Add(policy.Window),
	}
}

func (s *rateLimiterService) failOpen(ctx context.Context, action, identity string, client models.ClientInfo, policy config.RateLimitPolicy, err error) models.RateLimitResult {
	logger.FromContext(ctx).Err(err).
		Str("action", action).
		Str("identity", identity).
		Msg("rate limit store unavailable, failing open")

	s.audit.Record(ctx, models.AuditEntry{
		Action:    models.AuditActionStoreFailure,
		Resource:  "rate_limit",
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   false,
		Metadata: map[string]string{
			"rate_limit_action": action,
			"identity":          identity,
			"error":             err.Error(),
		},
	})

	return models.RateLimitResult{
		Allowed:   true,
		Remaining: policy.MaxAttempts,
		ResetAt:   s.now().Add(policy.Window),
	}
}
