package models

import "time"

// RecoveryToken is a single-use password-reset grant persisted under
// recovery:<Token>. It is consumed (deleted) on a successful reset, and swept
// once expired.
type RecoveryToken struct {
	// Token is the opaque value delivered to the account holder (UUID).
	Token string `json:"token"`

	UserID string `json:"userId"`
	Email  string `json:"email"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`

	// Requester context recorded for the audit trail.
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Expired reports whether the recovery token has passed its expiry at the
// given instant.
func (t RecoveryToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
