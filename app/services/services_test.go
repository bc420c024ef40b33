package services

import (
	"testing"
	"time"

	"inkwell/app/cache"
	"inkwell/app/logger"
	"inkwell/app/models"
	"inkwell/app/render"
	"inkwell/app/repositories"
	"inkwell/app/repositories/mock"

	"github.com/stretchr/testify/require"
)

func testPost(id, slug, title string) models.Post {
	return models.Post{
		ID:          id,
		CreatedAt:   time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC),
		Title:       title,
		Description: "intro",
		Author:      models.Author{Name: "Ann"},
		Slug:        models.Slug{Current: slug},
	}
}

func newTestPostService(t *testing.T, repo repositories.ContentRepository, fallback string) (*PostService, *cache.MemoryStore) {
	t.Helper()
	renderer, err := render.New(render.Options{SiteTitle: "Medium"})
	require.NoError(t, err)
	store := cache.NewMemoryStore()
	pages := cache.NewPageCache(store, cache.Options{
		Revalidate: time.Minute,
		Evict:      IsNotFound,
	}, logger.Discard())
	return NewPostService(repo, renderer, pages, fallback, logger.Discard()), store
}

func newRepo() *mock.ContentRepository {
	return mock.NewContentRepository(
		testPost("p1", "hello-world", "Hello World"),
		testPost("p2", "second", "Second"),
	)
}
