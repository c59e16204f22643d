package authz

// CSR roles, mirrored from the profiles table.
const (
	RoleAgent   = "agent"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// IsElevated reports whether the role may act on leads it does not own.
func IsElevated(role string) bool {
	return role == RoleManager || role == RoleAdmin
}
