package models

import "time"

// Audit action names recorded by the authentication core. Handlers and
// services use these constants so the audit trail stays greppable.
const (
	AuditActionLogin         = "login"
	AuditActionRefresh       = "token_refresh"
	AuditActionLogout        = "logout"
	AuditActionRegister      = "register"
	AuditActionPasswordReset = "password_reset"
	AuditActionRecoveryStart = "password_recovery_request"
	AuditActionRateLimit     = "rate_limit_block"
	AuditActionAPIAccess     = "api_access"
	AuditActionStoreFailure  = "store_failure"
)

// AuditEntry is an immutable record of one security-relevant event, persisted
// under audit:<timestamp>:<action>:<actor>. Entries are never mutated or
// deleted by the core; retention is an operational concern outside it.
type AuditEntry struct {
	ID string `json:"id"`

	// UserID is empty for events with no resolved account
	// (e.g. a login attempt against an unknown email).
	UserID string `json:"userId,omitempty"`

	// Action is one of the AuditAction constants.
	Action string `json:"action"`

	// Resource names the touched resource kind (e.g. "user", "session").
	Resource   string `json:"resource,omitempty"`
	ResourceID string `json:"resourceId,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`

	// Success records the outcome of the audited operation.
	Success bool `json:"success"`

	// Metadata holds free-form context, e.g. the precise internal failure
	// reason that is deliberately not disclosed to the caller.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Actor returns the identity segment of the audit key: the user id when one
// is known, "anonymous" otherwise.
func (e AuditEntry) Actor() string {
	if e.UserID == "" {
		return "anonymous"
	}
	return e.UserID
}
