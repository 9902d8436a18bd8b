package ports

import (
	"context"
	"time"

	"github.com/blogify/blog-api/internal/core/domain"
)

// PostRepository defines persistence operations for posts. Every returned post
// has its author resolved.
type PostRepository interface {
	// List returns all posts ordered newest-created first.
	List(ctx context.Context) ([]*domain.Post, error)
	FindByID(ctx context.Context, id string) (*domain.Post, error)
	Create(ctx context.Context, post *domain.Post) (*domain.Post, error)
	// Update rewrites title and body. Returns domain.ErrPostNotFound when id does not resolve.
	Update(ctx context.Context, id, title, body string, at time.Time) (*domain.Post, error)
	// Delete removes the post. Returns domain.ErrPostNotFound when id does not resolve.
	Delete(ctx context.Context, id string) error
}
