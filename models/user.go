package models

import (
	"strings"
	"time"
)

// Roles assignable to a professional account. The set is closed: any other
// value is rejected at registration and by the authorization middleware.
const (
	RolePractitioner  = "practitioner"
	RoleAdministrator = "administrator"
)

// User represents a medical professional account.
//
// Email and LicenseNumber are each globally unique. Email is stored
// lowercase-normalized and LicenseNumber uppercase-normalized; use
// [NormalizeEmail] and [NormalizeLicense] before any lookup or write.
//
// Only an account with both Active and Verified set may authenticate
// end-to-end. The stored record carries the password hash; use
// [User.Sanitized] before serializing a user into a response.
type User struct {
	// ID is the unique account identifier (UUID).
	ID string `json:"id"`

	// Email is the lowercase-normalized, globally unique login identifier.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the account password. It is
	// serialized for storage; strip it with [User.Sanitized] before a
	// user leaves the service boundary.
	PasswordHash string `json:"passwordHash,omitempty"`

	// GivenName and FamilyName are the professional's display names.
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`

	// Role is one of [RolePractitioner] or [RoleAdministrator].
	Role string `json:"role"`

	// Specialty is a free-form specialty label (e.g. "cardiología").
	Specialty string `json:"specialty,omitempty"`

	// LicenseNumber is the uppercase-normalized, globally unique
	// professional license number.
	LicenseNumber string `json:"licenseNumber"`

	// FacilityID optionally links the account to an affiliated facility.
	FacilityID string `json:"facilityId,omitempty"`

	// Active gates authentication; an inactive account cannot log in.
	Active bool `json:"active"`

	// Verified marks accounts whose credentials have been reviewed.
	// Both Active and Verified must hold for a successful login.
	Verified bool `json:"verified"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`

	// Preferences is the per-account preference bag.
	Preferences UserPreferences `json:"preferences"`

	// Deployment carries server-maintained session metadata.
	Deployment DeploymentMetadata `json:"deployment"`
}

// UserPreferences holds client-facing per-account settings.
type UserPreferences struct {
	Locale        string `json:"locale,omitempty"`
	Theme         string `json:"theme,omitempty"`
	Notifications bool   `json:"notifications"`
}

// DeploymentMetadata is server-maintained bookkeeping attached to a user.
type DeploymentMetadata struct {
	// LastSessionID is the id of the most recently created session.
	LastSessionID string `json:"lastSessionId,omitempty"`
}

// Sanitized returns a copy of the user safe to serialize into API responses:
// the password hash is stripped.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// CanAuthenticate reports whether the account is allowed to complete an
// authentication flow.
func (u User) CanAuthenticate() bool {
	return u.Active && u.Verified
}

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	return role == RolePractitioner || role == RoleAdministrator
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeLicense uppercases and trims a license number for storage and lookup.
func NormalizeLicense(license string) string {
	return strings.ToUpper(strings.TrimSpace(license))
}
