package models

import "time"

// Built-in role codes seeded by the migrations
const (
	RoleUser       = "USER"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

type Role struct {
	ID          string
	Name        string
	Code        string
	Description string
	System      bool
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is a single capability string such as "user:read",
// composed of a resource and an action.
type Permission struct {
	ID       string
	Name     string
	Code     string
	Resource string
	Action   string
}

// PermissionCodes returns the permission codes granted by the role.
func (r *Role) PermissionCodes() []string {
	codes := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		codes = append(codes, p.Code)
	}
	return codes
}
