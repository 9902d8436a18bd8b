package ports

import (
	"context"
	"time"

	"github.com/blogify/blog-api/internal/core/domain"
)

// AccountRepository defines the persistence operations of the credential store.
type AccountRepository interface {
	// Create inserts a new account. Returns domain.ErrEmailTaken on duplicate email.
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByVerificationToken(ctx context.Context, token string) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	ExistsWithRole(ctx context.Context, role domain.Role) (bool, error)

	// MarkVerified sets the verified flag and discards the verification token.
	MarkVerified(ctx context.Context, id string) error
	// UpdateRole overwrites both role and the cached permission set.
	UpdateRole(ctx context.Context, id string, role domain.Role, permissions []domain.Permission) error
	Delete(ctx context.Context, id string) error

	// CompareAndSetLoginState replaces the login state only if the stored state
	// still equals expected. It reports whether the write was applied.
	CompareAndSetLoginState(ctx context.Context, id string, expected, next domain.LoginState) (bool, error)
	// RecordLogin clears the failure counter and lock, stamps the login time and
	// overwrites the stored session token digest.
	RecordLogin(ctx context.Context, id string, at time.Time, refreshTokenHash string) error
	// SetRefreshTokenHash overwrites the session token digest; empty clears it.
	SetRefreshTokenHash(ctx context.Context, id string, hash string) error
}
