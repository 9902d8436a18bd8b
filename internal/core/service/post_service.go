package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/ports"
	"github.com/blogify/blog-api/internal/pkg/metrics"
)

type postService struct {
	repo     ports.PostRepository
	notifier ports.ChangeNotifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewPostService returns a PostService that announces every successful
// mutation on notifier.
func NewPostService(repo ports.PostRepository, notifier ports.ChangeNotifier, log zerolog.Logger) ports.PostService {
	return &postService{
		repo:     repo,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *postService) List(ctx context.Context) ([]*domain.Post, error) {
	return s.repo.List(ctx)
}

func (s *postService) Get(ctx context.Context, id string) (*domain.Post, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *postService) Create(ctx context.Context, authorID, title, body string) (*domain.Post, error) {
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, domain.Validationf("title and content are required")
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.Post{
		Title:     title,
		Body:      body,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.announce(domain.PostEvent{Kind: domain.PostCreated, Post: created, PostID: created.ID})
	return created, nil
}

func (s *postService) Update(ctx context.Context, id, title, body string) (*domain.Post, error) {
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, domain.Validationf("title and content are required")
	}

	updated, err := s.repo.Update(ctx, id, title, body, s.now())
	if err != nil {
		return nil, err
	}

	s.announce(domain.PostEvent{Kind: domain.PostUpdated, Post: updated, PostID: updated.ID})
	return updated, nil
}

func (s *postService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.announce(domain.PostEvent{Kind: domain.PostDeleted, PostID: id})
	return nil
}

func (s *postService) announce(event domain.PostEvent) {
	metrics.PostMutationsTotal.WithLabelValues(string(event.Kind)).Inc()
	s.notifier.Publish(event)
	s.log.Info().Str("post_id", event.PostID).Str("kind", string(event.Kind)).Msg("post changed")
}
