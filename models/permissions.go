package models

// Permission names derived from roles and checked by the authorization
// middleware on protected routes.
const (
	PermissionViewPatients     = "view_patients"
	PermissionManageRecords    = "manage_records"
	PermissionPrescribe        = "prescribe"
	PermissionManageUsers      = "manage_users"
	PermissionViewAuditTrail   = "view_audit_trail"
	PermissionManageFacilities = "manage_facilities"
)

var rolePermissions = map[string][]string{
	RolePractitioner: {
		PermissionViewPatients,
		PermissionManageRecords,
		PermissionPrescribe,
	},
	RoleAdministrator: {
		PermissionViewPatients,
		PermissionManageRecords,
		PermissionPrescribe,
		PermissionManageUsers,
		PermissionViewAuditTrail,
		PermissionManageFacilities,
	},
}

// PermissionsForRole returns the permission set of the role. Unknown roles
// carry no permissions.
func PermissionsForRole(role string) []string {
	permissions := rolePermissions[role]
	out := make([]string, len(permissions))
	copy(out, permissions)
	return out
}
