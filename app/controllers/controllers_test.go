package controllers

import (
	"testing"
	"time"

	"inkwell/app/cache"
	"inkwell/app/logger"
	"inkwell/app/models"
	"inkwell/app/render"
	"inkwell/app/repositories/mock"
	"inkwell/app/services"
	"inkwell/app/submitter"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	repo     *mock.ContentRepository
	router   *mux.Router
	posts    *PostController
	comments *CommentController
}

func helloWorld() models.Post {
	return models.Post{
		ID:          "p1",
		CreatedAt:   time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC),
		Title:       "Hello World",
		Description: "intro",
		Author:      models.Author{Name: "Ann"},
		Slug:        models.Slug{Current: "hello-world"},
	}
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Discard()
	repo := mock.NewContentRepository(helloWorld())

	renderer, err := render.New(render.Options{SiteTitle: "Medium"})
	require.NoError(t, err)
	pages := cache.NewPageCache(cache.NewMemoryStore(), cache.Options{Revalidate: time.Minute, Evict: services.IsNotFound}, log)
	postService := services.NewPostService(repo, renderer, pages, "", log)
	commentService := services.NewCommentService(repo, nil, log)

	env := &testEnv{
		repo:     repo,
		posts:    NewPostController(postService, renderer, 60, log),
		comments: NewCommentController(commentService, postService, submitter.ServiceSubmitter{Service: commentService}, renderer, log),
	}

	router := mux.NewRouter()
	router.HandleFunc("/", env.posts.Index).Methods("GET")
	router.HandleFunc("/api/posts", env.posts.List).Methods("GET")
	router.HandleFunc("/post/{slug}", env.posts.Show).Methods("GET")
	router.HandleFunc("/post/{slug}", env.comments.Submit).Methods("POST")
	router.HandleFunc("/api/createComment", env.comments.Create).Methods("POST")
	env.router = router
	return env
}

func TestEtagMatch(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    bool
	}{
		{"exact", []string{`"abc"`}, true},
		{"weak", []string{`W/"abc"`}, true},
		{"list", []string{`"x", "abc"`}, true},
		{"repeated header", []string{`"x"`, `"abc"`}, true},
		{"wildcard", []string{"*"}, true},
		{"no match", []string{`"x", W/"y"`}, false},
		{"empty entries", []string{`,,`}, false},
		{"absent", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, etagMatch(tt.headers, `"abc"`))
		})
	}
}
