package models

import "time"

// Session represents one authenticated client session. Its lifetime is
// independent of token lifetime: refresh-token rotation does not end a
// session, and a session outlives any individual access token.
type Session struct {
	// ID is the session identifier (UUID), also embedded in issued tokens.
	ID string `json:"id"`

	// UserID is the owning account.
	UserID string `json:"userId"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`

	// Client context captured at creation time.
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Expired reports whether the session has passed its expiry at the given
// instant.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ClientInfo carries per-request client context (IP, user agent) through the
// service layer so that sessions, refresh tokens, and audit entries can record
// where an action originated.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}
