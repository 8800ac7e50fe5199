package auth

const (
	RoleEmployee    = "employee"
	RoleManager     = "manager"
	RoleHR          = "hr"
	RoleSystemAdmin = "system_admin"
)

const (
	PermAppraisalRead    = "appraisal.read"
	PermAppraisalWrite   = "appraisal.write"
	PermAppraisalRelease = "appraisal.release"
	PermAppraisalResolve = "appraisal.resolve"
	PermConfigWrite      = "appraisal.config.write"
	PermReportsRead      = "reports.read"
	PermAuditRead        = "audit.read"
	PermSystemAdmin      = "admin.system"
)

var DefaultPermissions = []string{
	PermAppraisalRead,
	PermAppraisalWrite,
	PermAppraisalRelease,
	PermAppraisalResolve,
	PermConfigWrite,
	PermReportsRead,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermAppraisalRead,
		PermAppraisalWrite,
	},
	RoleManager: {
		PermAppraisalRead,
		PermAppraisalWrite,
		PermReportsRead,
	},
	RoleHR: {
		PermAppraisalRead,
		PermAppraisalWrite,
		PermAppraisalRelease,
		PermAppraisalResolve,
		PermConfigWrite,
		PermReportsRead,
		PermAuditRead,
		PermSystemAdmin,
	},
	RoleSystemAdmin: {
		PermSystemAdmin,
	},
}

// HasPermission reports whether the role carries the permission by default.
// Tenant-specific grants in role_permissions take precedence at request time.
func HasPermission(roleName, permission string) bool {
	for _, perm := range RolePermissions[roleName] {
		if perm == permission {
			return true
		}
	}
	return false
}
