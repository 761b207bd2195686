package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openindexer/indexerd/internal/cache"
	"github.com/openindexer/indexerd/internal/repository"
	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/logger"
	"github.com/openindexer/indexerd/pkg/models"
)

// PostService manages posts with read-through caching
type PostService struct {
	repo   repository.PostRepository
	cache  cache.Cache
	logger *zap.Logger
}

// NewPostService wires a PostService
func NewPostService(repo repository.PostRepository, c cache.Cache) *PostService {
	return &PostService{
		repo:   repo,
		cache:  c,
		logger: logger.With(zap.String("component", "post_service")),
	}
}

// Create stores a new post and invalidates the list cache
func (s *PostService) Create(ctx context.Context, title, body string) (*models.Post, error) {
	if title == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "title is required")
	}

	post := models.NewPost(title, body)
	if err := s.repo.Insert(ctx, post); err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, cache.PostListKey); err != nil {
		s.logger.Debug("cache invalidation failed", zap.Error(err))
	}
	return post, nil
}

// Get fetches one post, served from cache when possible
func (s *PostService) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var cached models.Post
	if hit, err := s.cache.GetJSON(ctx, cache.PostKey(id.String()), &cached); err == nil && hit {
		return &cached, nil
	}

	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, cache.PostKey(id.String()), post); err != nil {
		s.logger.Debug("cache update failed", zap.Error(err))
	}
	return post, nil
}

// List fetches all posts, served from cache when possible
func (s *PostService) List(ctx context.Context) ([]*models.Post, error) {
	var cached []*models.Post
	if hit, err := s.cache.GetJSON(ctx, cache.PostListKey, &cached); err == nil && hit {
		return cached, nil
	}

	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, cache.PostListKey, posts); err != nil {
		s.logger.Debug("cache update failed", zap.Error(err))
	}
	return posts, nil
}
