package service

import "github.com/blogify/blog-api/internal/core/domain"

// Authorizer evaluates permission requirements against an account. Role
// tables are applied when permissions are stored, so checks read only the
// account.
type Authorizer struct{}

func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

// HasPermission is true for admin and super_admin regardless of the stored
// set; for any other role it checks the account's cached permissions.
func (a *Authorizer) HasPermission(account *domain.Account, perm domain.Permission) bool {
	if account == nil {
		return false
	}
	if account.Role == domain.RoleAdmin || account.Role == domain.RoleSuperAdmin {
		return true
	}
	for _, p := range account.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// HasAll reports whether every permission is satisfied.
func (a *Authorizer) HasAll(account *domain.Account, perms ...domain.Permission) bool {
	for _, p := range perms {
		if !a.HasPermission(account, p) {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one permission is satisfied.
func (a *Authorizer) HasAny(account *domain.Account, perms ...domain.Permission) bool {
	for _, p := range perms {
		if a.HasPermission(account, p) {
			return true
		}
	}
	return false
}
