package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/ports"
)

// AccountService implements user administration.
type AccountService struct {
	repo  ports.AccountRepository
	table domain.PermissionTable
	log   zerolog.Logger
	now   func() time.Time
}

var _ ports.AccountService = (*AccountService)(nil)

func NewAccountService(repo ports.AccountRepository, table domain.PermissionTable, log zerolog.Logger) *AccountService {
	return &AccountService{
		repo:  repo,
		table: table,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountService) List(ctx context.Context) ([]*domain.Account, error) {
	return s.repo.List(ctx)
}

// Delete removes target on behalf of actor. Super admins and the actor's own
// account are protected.
func (s *AccountService) Delete(ctx context.Context, actorID, targetID string) error {
	target, err := s.guardTarget(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, target.ID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.log.Info().Str("actor_id", actorID).Str("account_id", target.ID).Msg("account deleted")
	return nil
}

// Verify marks target verified without a token.
func (s *AccountService) Verify(ctx context.Context, targetID string) error {
	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkVerified(ctx, target.ID); err != nil {
		return fmt.Errorf("verify account: %w", err)
	}
	s.log.Info().Str("account_id", target.ID).Msg("account verified manually")
	return nil
}

// ChangeRole moves target to role and rewrites its permission set from the
// table. The role value is checked before the target is resolved.
func (s *AccountService) ChangeRole(ctx context.Context, actorID, targetID string, role domain.Role) (*domain.Account, error) {
	if !role.Assignable() {
		return nil, domain.Validationf("invalid role %q", role)
	}
	target, err := s.guardTarget(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	perms := s.table.For(role)
	if err := s.repo.UpdateRole(ctx, target.ID, role, perms); err != nil {
		return nil, fmt.Errorf("change role: %w", err)
	}
	target.Role = role
	target.Permissions = perms
	target.UpdatedAt = s.now()

	s.log.Info().
		Str("actor_id", actorID).
		Str("account_id", target.ID).
		Str("role", string(role)).
		Msg("role changed")
	return target, nil
}

// BootstrapSuperAdmin creates a verified super_admin unless one already exists.
// It reports whether an account was created.
func (s *AccountService) BootstrapSuperAdmin(ctx context.Context, name, email, password string, cost int) (bool, error) {
	exists, err := s.repo.ExistsWithRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return false, fmt.Errorf("bootstrap: %w", err)
	}
	if exists {
		return false, nil
	}
	if cost <= 0 {
		cost = DefaultBcryptCost
	}

	hash, err := hashPassword(password, cost)
	if err != nil {
		return false, fmt.Errorf("bootstrap: %w", err)
	}
	now := s.now()
	created, err := s.repo.Create(ctx, &domain.Account{
		Name:         name,
		Email:        NormalizeEmail(email),
		PasswordHash: string(hash),
		Role:         domain.RoleSuperAdmin,
		Permissions:  s.table.For(domain.RoleSuperAdmin),
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return false, fmt.Errorf("bootstrap: %w", err)
	}

	s.log.Info().Str("account_id", created.ID).Str("email", created.Email).Msg("super admin created")
	return true, nil
}

// guardTarget resolves target and applies the checks shared by destructive
// admin operations, in order: exists, not super_admin, not the actor.
func (s *AccountService) guardTarget(ctx context.Context, actorID, targetID string) (*domain.Account, error) {
	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.IsSuperAdmin() {
		return nil, domain.ErrSuperAdminProtected
	}
	if target.ID == actorID {
		return nil, domain.ErrSelfModification
	}
	return target, nil
}
