package models

import "time"

// Rate-limited action names used as the first segment of the limiter key.
const (
	ActionLogin         = "login"
	ActionRegistration  = "registration"
	ActionPasswordReset = "password_reset"
)

// RateLimitRecord tracks attempts for one action+identity composite within a
// sliding window, persisted under rate_limit:<action>:<identity>.
type RateLimitRecord struct {
	Count        int       `json:"count"`
	FirstAttempt time.Time `json:"firstAttempt"`
	LastAttempt  time.Time `json:"lastAttempt"`

	// BlockedUntil is set once the attempt count exceeds the policy
	// threshold; while in the future, every attempt is rejected without
	// incrementing the count.
	BlockedUntil *time.Time `json:"blockedUntil,omitempty"`
}

// Blocked reports whether the record is inside an active block at the given
// instant.
func (r RateLimitRecord) Blocked(now time.Time) bool {
	return r.BlockedUntil != nil && now.Before(*r.BlockedUntil)
}

// RateLimitResult is the outcome of a limiter check, exposed to HTTP
// middleware as response metadata.
type RateLimitResult struct {
	Allowed bool

	// Remaining attempts left in the current window (0 when rejected).
	Remaining int

	// RetryAfter is how long the caller must wait when rejected.
	RetryAfter time.Duration

	// ResetAt is when the current window or block elapses.
	ResetAt time.Time
}
