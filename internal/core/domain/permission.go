package domain

// Permission is an atomic named capability.
type Permission string

const (
	PermCreatePost    Permission = "create_post"
	PermEditPost      Permission = "edit_post"
	PermDeletePost    Permission = "delete_post"
	PermManageUsers   Permission = "manage_users"
	PermManageRoles   Permission = "manage_roles"
	PermViewAnalytics Permission = "view_analytics"
)

// AllPermissions lists the closed set of permissions in a stable order.
func AllPermissions() []Permission {
	return []Permission{
		PermCreatePost,
		PermEditPost,
		PermDeletePost,
		PermManageUsers,
		PermManageRoles,
		PermViewAnalytics,
	}
}

// Valid reports whether p belongs to the closed permission set.
func (p Permission) Valid() bool {
	for _, known := range AllPermissions() {
		if p == known {
			return true
		}
	}
	return false
}

// PermissionTable maps each role to the permissions it grants. The zero value
// grants nothing; build one with NewPermissionTable or DefaultPermissionTable.
// A table is never mutated after construction, so it can be shared freely.
type PermissionTable struct {
	grants map[Role][]Permission
}

// NewPermissionTable copies grants into a new table. Unknown roles and
// permissions are dropped.
func NewPermissionTable(grants map[Role][]Permission) PermissionTable {
	cp := make(map[Role][]Permission, len(grants))
	for role, perms := range grants {
		if !role.Valid() {
			continue
		}
		kept := make([]Permission, 0, len(perms))
		for _, p := range perms {
			if p.Valid() {
				kept = append(kept, p)
			}
		}
		cp[role] = kept
	}
	return PermissionTable{grants: cp}
}

// DefaultPermissionTable returns the platform's role grants.
func DefaultPermissionTable() PermissionTable {
	return NewPermissionTable(map[Role][]Permission{
		RoleUser:       {PermCreatePost},
		RoleAdmin:      {PermCreatePost, PermEditPost, PermDeletePost, PermManageUsers},
		RoleSuperAdmin: AllPermissions(),
	})
}

// For returns a copy of the permissions granted to role. Unknown roles get none.
func (t PermissionTable) For(role Role) []Permission {
	perms := t.grants[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
