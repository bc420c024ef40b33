package controllers

import (
	"fmt"
	"net/http"

	"inkwell/app/logger"
	"inkwell/app/render"
	"inkwell/app/services"

	"github.com/gorilla/mux"
)

// PostController handles HTTP requests for blog posts
type PostController struct {
	postService *services.PostService
	renderer    *render.Renderer
	logger      *logger.Logger
	revalidate  int
}

// NewPostController creates a new PostController. revalidateSeconds is
// advertised to shared caches.
func NewPostController(postService *services.PostService, renderer *render.Renderer, revalidateSeconds int, log *logger.Logger) *PostController {
	return &PostController{
		postService: postService,
		renderer:    renderer,
		logger:      log,
		revalidate:  revalidateSeconds,
	}
}

// Index renders the listing page on every request
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	body, err := pc.postService.RenderListing(r.Context())
	if err != nil {
		pc.sendError(w, r, "Failed to fetch posts", http.StatusInternalServerError, err)
		return
	}
	sendHTML(w, http.StatusOK, body)
}

// List returns the listing as JSON
func (pc *PostController) List(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.postService.ListPosts(r.Context())
	if err != nil {
		pc.sendError(w, r, "Failed to fetch posts", http.StatusInternalServerError, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// Show serves the cached detail page of a post
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	entry, status, err := pc.postService.Page(r.Context(), slug)
	if services.IsNotFound(err) {
		pc.sendError(w, r, "Post not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		pc.sendError(w, r, "Failed to load post", http.StatusInternalServerError, err)
		return
	}

	h := w.Header()
	h.Set("ETag", entry.ETag)
	h.Set("X-Cache", string(status))
	h.Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate", pc.revalidate))
	h.Set("Last-Modified", entry.GeneratedAt.UTC().Format(http.TimeFormat))
	if etagMatch(r.Header.Values("If-None-Match"), entry.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	sendHTML(w, http.StatusOK, entry.Body)
}

func (pc *PostController) sendError(w http.ResponseWriter, r *http.Request, message string, status int, err error) {
	sendError(w, r, pc.renderer, pc.logger, message, status, err)
}
