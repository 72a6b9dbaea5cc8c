package models

import "time"

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest is the body of POST /api/auth/logout. SessionID is optional;
// logout always revokes every refresh token of the caller regardless.
type LogoutRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	GivenName     string `json:"givenName"`
	FamilyName    string `json:"familyName"`
	Specialty     string `json:"specialty,omitempty"`
	LicenseNumber string `json:"licenseNumber"`
	FacilityID    string `json:"facilityId,omitempty"`
}

// RecoverRequest is the body of POST /api/auth/recover.
type RecoverRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// SessionInfo is the session metadata block returned alongside tokens.
type SessionInfo struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginResponse is the success body of login and of an auto-activated
// registration.
type LoginResponse struct {
	User    User        `json:"user"`
	Tokens  TokenPair   `json:"tokens"`
	Session SessionInfo `json:"session"`
}

// RegisterResponse is the success body of registration. Tokens and Session
// are nil when the deployment policy leaves new accounts pending approval.
type RegisterResponse struct {
	User    User         `json:"user"`
	Tokens  *TokenPair   `json:"tokens,omitempty"`
	Session *SessionInfo `json:"session,omitempty"`

	// PendingApproval marks accounts that must be activated by an
	// administrator before first login.
	PendingApproval bool `json:"pendingApproval,omitempty"`
}

// APIError is the machine-readable error detail nested in every failure
// response. Message is a short Spanish-language human-readable text; Code is
// stable and intended for client-side handling.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Fields carries field-level detail for validation failures.
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorResponse is the envelope of every failure response.
type ErrorResponse struct {
	Error APIError `json:"error"`

	// RetryAfter is set on rate-limit rejections (seconds).
	RetryAfter int64 `json:"retryAfter,omitempty"`
}
