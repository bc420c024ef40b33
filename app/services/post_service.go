package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"inkwell/app/cache"
	"inkwell/app/config"
	"inkwell/app/logger"
	"inkwell/app/models"
	"inkwell/app/render"
	"inkwell/app/repositories"
)

// PostService handles reading and rendering blog posts
type PostService struct {
	repo     repositories.ContentRepository
	renderer *render.Renderer
	pages    *cache.PageCache
	fallback string
	logger   *logger.Logger

	mu    sync.RWMutex
	paths map[string]bool
}

// NewPostService creates a new PostService. fallback is one of the
// config.Fallback* policies.
func NewPostService(repo repositories.ContentRepository, renderer *render.Renderer, pages *cache.PageCache, fallback string, log *logger.Logger) *PostService {
	if fallback == "" {
		fallback = config.FallbackBlocking
	}
	return &PostService{
		repo:     repo,
		renderer: renderer,
		pages:    pages,
		fallback: fallback,
		logger:   log,
		paths:    make(map[string]bool),
	}
}

// ListPosts retrieves every post summary
func (s *PostService) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.repo.ListPosts(ctx)
}

// GetPost retrieves a post with its approved comments
func (s *PostService) GetPost(ctx context.Context, slug string) (*models.Post, error) {
	post, err := s.repo.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	post.Comments = post.ApprovedComments()
	return post, nil
}

// RenderListing renders the home page from a fresh listing.
func (s *PostService) RenderListing(ctx context.Context) ([]byte, error) {
	posts, err := s.repo.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	var buf bytes.Buffer
	if err := s.renderer.Listing(&buf, posts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPost renders a detail page with the given form state.
func (s *PostService) RenderPost(ctx context.Context, slug string, form render.FormView) ([]byte, error) {
	post, err := s.GetPost(ctx, slug)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := s.renderer.Detail(&buf, post, form); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Page serves the cached detail page for slug. Slugs outside the known
// path set are ErrNotFound when the fallback policy is "false".
func (s *PostService) Page(ctx context.Context, slug string) (*cache.Entry, cache.Status, error) {
	if s.fallback == config.FallbackNone && !s.isKnown(slug) {
		return nil, cache.StatusMiss, repositories.ErrNotFound
	}
	return s.pages.Get(ctx, models.SlugPath(slug), s.generator(slug))
}

// LoadPaths fetches the static path set.
func (s *PostService) LoadPaths(ctx context.Context) ([]models.SlugEntry, error) {
	slugs, err := s.repo.ListSlugs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list slugs: %w", err)
	}
	paths := make(map[string]bool, len(slugs))
	for _, e := range slugs {
		paths[e.Slug.Current] = true
	}
	s.mu.Lock()
	s.paths = paths
	s.mu.Unlock()
	return slugs, nil
}

// Prerender loads the path set and renders every page into the cache.
// A page that fails to render is logged and skipped.
func (s *PostService) Prerender(ctx context.Context) (int, error) {
	slugs, err := s.LoadPaths(ctx)
	if err != nil {
		return 0, err
	}
	rendered := 0
	for _, e := range slugs {
		slug := e.Slug.Current
		if _, err := s.pages.Refresh(ctx, models.SlugPath(slug), s.generator(slug)); err != nil {
			s.logger.Warn("prerender %s failed: %v", slug, err)
			continue
		}
		rendered++
	}
	s.logger.Info("prerendered %d of %d posts", rendered, len(slugs))
	return rendered, nil
}

// IsNotFound reports whether err means the post does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}

func (s *PostService) generator(slug string) cache.Generator {
	return func(ctx context.Context) ([]byte, error) {
		return s.RenderPost(ctx, slug, render.FormView{})
	}
}

func (s *PostService) isKnown(slug string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paths[slug]
}
