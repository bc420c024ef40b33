package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inkwell/app/cache"
	"inkwell/app/controllers"
	"inkwell/app/logger"
	"inkwell/app/middleware"
	"inkwell/app/models"
	"inkwell/app/render"
	"inkwell/app/repositories/mock"
	"inkwell/app/services"
	"inkwell/app/submitter"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T, limiter middleware.Limiter) (*mux.Router, *mock.ContentRepository) {
	t.Helper()
	log := logger.Discard()
	repo := mock.NewContentRepository(models.Post{
		ID:          "p1",
		Title:       "Hello World",
		Description: "intro",
		Author:      models.Author{Name: "Ann"},
		Slug:        models.Slug{Current: "hello-world"},
	})
	renderer, err := render.New(render.Options{})
	require.NoError(t, err)
	pages := cache.NewPageCache(cache.NewMemoryStore(), cache.Options{Revalidate: time.Minute, Evict: services.IsNotFound}, log)
	postService := services.NewPostService(repo, renderer, pages, "", log)
	commentService := services.NewCommentService(repo, nil, log)

	router := SetupRoutes(Handlers{
		Posts:    controllers.NewPostController(postService, renderer, 60, log),
		Comments: controllers.NewCommentController(commentService, postService, submitter.ServiceSubmitter{Service: commentService}, renderer, log),
		Limiter:  limiter,
		Logger:   log,
	})
	return router, repo
}

func TestRoutes(t *testing.T) {
	router, _ := setupTestRouter(t, nil)

	tests := []struct {
		name        string
		method      string
		path        string
		status      int
		contentType string
	}{
		{"home", "GET", "/", http.StatusOK, "text/html; charset=utf-8"},
		{"detail", "GET", "/post/hello-world", http.StatusOK, "text/html; charset=utf-8"},
		{"missing detail", "GET", "/post/missing", http.StatusNotFound, "text/html; charset=utf-8"},
		{"api posts", "GET", "/api/posts", http.StatusOK, "application/json"},
		{"health", "GET", "/healthz", http.StatusOK, "application/json"},
		{"stylesheet", "GET", "/static/style.css", http.StatusOK, "text/css; charset=utf-8"},
		{"wrong method", "DELETE", "/post/hello-world", http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			}
			if tt.status != http.StatusMethodNotAllowed {
				assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
			}
		})
	}
}

func TestCreateCommentRoute(t *testing.T) {
	router, repo := setupTestRouter(t, nil)

	body := `{"_id":"p1","name":"Ann","email":"ann@example.com","comment":"Nice"}`
	req := httptest.NewRequest("POST", "/api/createComment", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Comment submitted"}`, w.Body.String())
	assert.Len(t, repo.Comments(), 1)
}

func TestCommentRateLimit(t *testing.T) {
	router, repo := setupTestRouter(t, middleware.NewMemoryLimiter(2, time.Minute))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		body := `{"_id":"p1","name":"Ann","email":"ann@example.com","comment":"Nice"}`
		req := httptest.NewRequest("POST", "/api/createComment", strings.NewReader(body))
		req.RemoteAddr = "198.51.100.4:4000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Len(t, repo.Comments(), 2)
}
