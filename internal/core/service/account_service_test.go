package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/blogify/blog-api/internal/core/domain"
)

func seedAccount(repo *stubAccountRepo, email string, role domain.Role) *domain.Account {
	acc, _ := repo.Create(context.Background(), &domain.Account{
		Name:        "Seed",
		Email:       email,
		Role:        role,
		Permissions: domain.DefaultPermissionTable().For(role),
		Verified:    true,
	})
	return acc
}

func newAccountSvc(repo *stubAccountRepo) *AccountService {
	return NewAccountService(repo, domain.DefaultPermissionTable(), zerolog.Nop())
}

func TestAccountService_Delete(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAccountSvc(repo)
	ctx := context.Background()

	admin := seedAccount(repo, "admin@example.com", domain.RoleAdmin)
	root := seedAccount(repo, "root@example.com", domain.RoleSuperAdmin)
	user := seedAccount(repo, "user@example.com", domain.RoleUser)

	if err := svc.Delete(ctx, admin.ID, "missing"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, admin.ID, root.ID); !errors.Is(err, domain.ErrSuperAdminProtected) {
		t.Fatalf("expected ErrSuperAdminProtected, got %v", err)
	}
	if err := svc.Delete(ctx, admin.ID, admin.ID); !errors.Is(err, domain.ErrSelfModification) {
		t.Fatalf("expected ErrSelfModification, got %v", err)
	}
	if err := svc.Delete(ctx, admin.ID, user.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := repo.accounts[user.ID]; ok {
		t.Fatalf("expected user to be removed")
	}
}

func TestAccountService_Delete_SuperAdminSelf(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAccountSvc(repo)

	root := seedAccount(repo, "root@example.com", domain.RoleSuperAdmin)

	// The super_admin check runs before the self check.
	err := svc.Delete(context.Background(), root.ID, root.ID)
	if !errors.Is(err, domain.ErrSuperAdminProtected) {
		t.Fatalf("expected ErrSuperAdminProtected, got %v", err)
	}
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected the error to match ErrForbidden")
	}
}

func TestAccountService_ChangeRole(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAccountSvc(repo)
	ctx := context.Background()

	root := seedAccount(repo, "root@example.com", domain.RoleSuperAdmin)
	user := seedAccount(repo, "user@example.com", domain.RoleUser)

	updated, err := svc.ChangeRole(ctx, root.ID, user.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("change role failed: %v", err)
	}
	if updated.Role != domain.RoleAdmin {
		t.Fatalf("unexpected role: %s", updated.Role)
	}
	want := domain.DefaultPermissionTable().For(domain.RoleAdmin)
	stored := repo.accounts[user.ID]
	if len(stored.Permissions) != len(want) {
		t.Fatalf("expected permissions %v, got %v", want, stored.Permissions)
	}
	for i := range want {
		if stored.Permissions[i] != want[i] {
			t.Fatalf("expected permissions %v, got %v", want, stored.Permissions)
		}
	}

	if _, err := svc.ChangeRole(ctx, root.ID, user.ID, domain.RoleUser); err != nil {
		t.Fatalf("demotion failed: %v", err)
	}
	if got := repo.accounts[user.ID].Permissions; len(got) != 1 || got[0] != domain.PermCreatePost {
		t.Fatalf("expected demoted permissions, got %v", got)
	}
}

func TestAccountService_ChangeRole_Rejections(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAccountSvc(repo)
	ctx := context.Background()

	root := seedAccount(repo, "root@example.com", domain.RoleSuperAdmin)
	other := seedAccount(repo, "root2@example.com", domain.RoleSuperAdmin)
	admin := seedAccount(repo, "admin@example.com", domain.RoleAdmin)

	tests := []struct {
		name    string
		actor   string
		target  string
		role    domain.Role
		wantErr error
	}{
		{"invalid role first", root.ID, "missing", domain.Role("owner"), domain.ErrValidation},
		{"super_admin not assignable", root.ID, admin.ID, domain.RoleSuperAdmin, domain.ErrValidation},
		{"role checked before super_admin target", root.ID, other.ID, domain.RoleSuperAdmin, domain.ErrValidation},
		{"missing target", root.ID, "missing", domain.RoleAdmin, domain.ErrAccountNotFound},
		{"super_admin target", root.ID, other.ID, domain.RoleUser, domain.ErrSuperAdminProtected},
		{"self", admin.ID, admin.ID, domain.RoleUser, domain.ErrSelfModification},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ChangeRole(ctx, tc.actor, tc.target, tc.role); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
	if repo.accounts[admin.ID].Role != domain.RoleAdmin {
		t.Fatalf("rejected change must not touch the account")
	}
}

func TestAccountService_Verify(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAccountSvc(repo)

	acc, _ := repo.Create(context.Background(), &domain.Account{Email: "new@example.com", Role: domain.RoleUser, VerificationToken: "tok"})
	if err := svc.Verify(context.Background(), acc.ID); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	stored := repo.accounts[acc.ID]
	if !stored.Verified || stored.VerificationToken != "" {
		t.Fatalf("expected verified account without token, got %+v", stored)
	}
	if err := svc.Verify(context.Background(), "missing"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountService_BootstrapSuperAdmin(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAccountSvc(repo)
	ctx := context.Background()

	created, err := svc.BootstrapSuperAdmin(ctx, "Super Admin", "Admin@Blogify.com", "Admin@123", bcrypt.MinCost)
	if err != nil || !created {
		t.Fatalf("expected creation, got %v, %v", created, err)
	}
	acc, err := repo.FindByEmail(ctx, "admin@blogify.com")
	if err != nil {
		t.Fatalf("seeded account missing: %v", err)
	}
	if !acc.IsSuperAdmin() || !acc.Verified || len(acc.Permissions) != len(domain.AllPermissions()) {
		t.Fatalf("unexpected seeded account: %+v", acc)
	}

	created, err = svc.BootstrapSuperAdmin(ctx, "Other", "other@blogify.com", "Admin@123", bcrypt.MinCost)
	if err != nil || created {
		t.Fatalf("expected no-op when a super admin exists, got %v, %v", created, err)
	}
}

func TestAccountService_BootstrapSuperAdmin_PasswordTooLong(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAccountSvc(repo)

	_, err := svc.BootstrapSuperAdmin(context.Background(), "Root", "root@blogify.com", "Admin@123"+strings.Repeat("x", 80), bcrypt.MinCost)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
