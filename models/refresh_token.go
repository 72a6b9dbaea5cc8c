package models

import "time"

// RefreshTokenRecord represents one outstanding refresh-token grant,
// persisted under refresh_tokens:<TokenID>.
//
// Lifecycle: created at login or at rotation of a prior token; removed on
// rotation, on logout (all records of the user), on password reset, or by the
// expiry sweep. A token id that has been rotated or revoked must never
// validate again: verification requires the record to still exist, be
// Active, and be unexpired.
type RefreshTokenRecord struct {
	// TokenID is the unique grant identifier, mirrored in the token's
	// "jti" claim.
	TokenID string `json:"tokenId"`

	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`

	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`

	// Device metadata captured at issuance.
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`

	// Active is cleared instead of deleting the record when a deployment
	// prefers soft revocation; verification treats inactive as revoked.
	Active bool `json:"active"`
}

// Usable reports whether the record may still back a refresh: active and
// unexpired at the given instant.
func (r RefreshTokenRecord) Usable(now time.Time) bool {
	return r.Active && now.Before(r.ExpiresAt)
}
