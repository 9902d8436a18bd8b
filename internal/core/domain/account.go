package domain

import "time"

// Role is the coarse-grained authority level of an account.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Assignable reports whether r can be set through the role management endpoint.
// Promotion to super_admin only happens through the seed command.
func (r Role) Assignable() bool {
	return r == RoleUser || r == RoleAdmin
}

// LoginState holds the failed-attempt counter and the lock deadline.
type LoginState struct {
	FailedAttempts int
	LockUntil      *time.Time
}

// LockedAt reports whether the lock deadline lies after now.
func (s LoginState) LockedAt(now time.Time) bool {
	return s.LockUntil != nil && s.LockUntil.After(now)
}

// Account models a registered user of the platform.
type Account struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	Role              Role
	Permissions       []Permission
	Verified          bool
	VerificationToken string // empty once consumed
	Login             LoginState
	LastLoginAt       *time.Time
	RefreshTokenHash  string // empty when no session is active
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsSuperAdmin reports whether the account holds the super_admin role.
func (a *Account) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// HasActiveSession reports whether a refresh token is currently stored.
func (a *Account) HasActiveSession() bool {
	return a.RefreshTokenHash != ""
}
