package ports

import (
	"context"

	"github.com/blogify/blog-api/internal/core/domain"
)

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Account      *domain.Account
}

// AuthService covers the account session lifecycle.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	VerifyEmail(ctx context.Context, token string) error
	VerificationStatus(ctx context.Context, email string) (bool, error)
	Profile(ctx context.Context, accountID string) (*domain.Account, error)
	Logout(ctx context.Context, accountID string) error
}

// AccountService covers user administration.
type AccountService interface {
	List(ctx context.Context) ([]*domain.Account, error)
	Delete(ctx context.Context, actorID, targetID string) error
	Verify(ctx context.Context, targetID string) error
	ChangeRole(ctx context.Context, actorID, targetID string, role domain.Role) (*domain.Account, error)
}

// PostService covers the content store use cases.
type PostService interface {
	List(ctx context.Context) ([]*domain.Post, error)
	Get(ctx context.Context, id string) (*domain.Post, error)
	Create(ctx context.Context, authorID, title, body string) (*domain.Post, error)
	Update(ctx context.Context, id, title, body string) (*domain.Post, error)
	Delete(ctx context.Context, id string) error
}
