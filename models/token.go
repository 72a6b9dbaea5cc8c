package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Audience values distinguishing the two token kinds. Verification checks the
// audience claim, so an access token can never be replayed as a refresh token
// or vice versa.
const (
	AudienceAccess  = "medical-professionals"
	AudienceRefresh = "medical-refresh"
)

// AccessClaims is the payload of a short-lived access token. The subject
// claim carries the user id; SessionID binds the token to the session created
// at login.
type AccessClaims struct {
	jwt.RegisteredClaims

	Email         string `json:"email"`
	Role          string `json:"role"`
	Specialty     string `json:"specialty,omitempty"`
	LicenseNumber string `json:"license_number"`
	SessionID     string `json:"session_id"`
}

// RefreshClaims is the payload of a refresh token. The registered ID claim
// ("jti") is the refresh-token record id; the subject is the user id.
type RefreshClaims struct {
	jwt.RegisteredClaims

	SessionID string `json:"session_id"`
}

// TokenPair is the pair of bearer tokens issued together at login and at each
// rotation. Expiry values are seconds, mirrored from the token claims so
// clients need not decode the JWT to schedule a refresh.
type TokenPair struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"`
}

// Identity is the authenticated caller attached to the request context by the
// authentication middleware.
type Identity struct {
	UserID        string
	Email         string
	Role          string
	Specialty     string
	LicenseNumber string
	SessionID     string

	// Permissions is the permission set derived from Role.
	Permissions []string
}

// HasPermission reports whether the identity carries the named permission.
func (i Identity) HasPermission(permission string) bool {
	for _, p := range i.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
