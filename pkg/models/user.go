package models

import "strings"

// Role names that grant force-delete on flow instances.
const (
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPERADMIN"
)

// User carries the identity and role names needed for authorization checks.
// Full account management lives outside this service.
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// IsAdmin reports whether any role grants administrative privileges.
// Role names are compared case-insensitively to match legacy records.
func (u *User) IsAdmin() bool {
	for _, role := range u.Roles {
		switch strings.ToUpper(role) {
		case RoleAdmin, RoleSuperAdmin:
			return true
		}
	}

	return false
}
