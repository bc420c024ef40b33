package controllers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"inkwell/app/logger"
	"inkwell/app/models"
	"inkwell/app/render"
	"inkwell/app/services"
	"inkwell/app/submitter"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

const maxCommentBody = 64 << 10

// CommentController handles HTTP requests for comments
type CommentController struct {
	commentService *services.CommentService
	postService    *services.PostService
	submitter      submitter.Submitter
	renderer       *render.Renderer
	logger         *logger.Logger
}

// NewCommentController creates a new CommentController. The detail page
// form is delivered through s.
func NewCommentController(commentService *services.CommentService, postService *services.PostService, s submitter.Submitter, renderer *render.Renderer, log *logger.Logger) *CommentController {
	return &CommentController{
		commentService: commentService,
		postService:    postService,
		submitter:      s,
		renderer:       renderer,
		logger:         log,
	}
}

// Create handles the JSON createComment endpoint
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxCommentBody))
	if err != nil {
		sendJSON(w, http.StatusBadRequest, map[string]string{"message": "Couldn't read request body"})
		return
	}
	var form models.CommentForm
	if err := json.Unmarshal(data, &form); err != nil {
		sendJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid JSON", "err": err.Error()})
		return
	}

	comment, err := cc.commentService.CreateComment(r.Context(), form)
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		sendJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "Missing required fields", "errors": verr.Fields})
		return
	case err != nil:
		cc.logger.Error("createComment failed: %v", err)
		sendJSON(w, http.StatusInternalServerError, map[string]string{"message": "Couldn't submit comment", "err": err.Error()})
		return
	}

	cc.logger.Debug("comment %s submitted", comment.ID)
	sendJSON(w, http.StatusOK, map[string]string{"message": "Comment submitted"})
}

// Submit handles the comment form posted from a detail page
func (cc *CommentController) Submit(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	r.Body = http.MaxBytesReader(w, r.Body, maxCommentBody)
	if err := r.ParseForm(); err != nil {
		cc.sendError(w, r, "Failed to parse form", http.StatusBadRequest, err)
		return
	}

	post, err := cc.postService.GetPost(r.Context(), slug)
	if services.IsNotFound(err) {
		cc.sendError(w, r, "Post not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		cc.sendError(w, r, "Failed to load post", http.StatusInternalServerError, err)
		return
	}

	form := submitter.NewForm(post.ID, cc.submitter, cc.logger)
	input := models.CommentForm{
		PostID:  post.ID,
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Comment: r.PostFormValue("comment"),
	}
	fieldErrors, err := form.Submit(r.Context(), input)
	if err != nil {
		cc.sendError(w, r, "Failed to submit comment", http.StatusInternalServerError, err)
		return
	}

	view := render.FormView{
		Values:    form.Values(),
		Errors:    fieldErrors,
		Submitted: form.State() == submitter.Submitted,
	}
	status := http.StatusOK
	if fieldErrors != nil {
		status = http.StatusUnprocessableEntity
	}

	var buf bytes.Buffer
	if err := cc.renderer.Detail(&buf, post, view); err != nil {
		cc.sendError(w, r, "Failed to render post", http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	sendHTML(w, status, buf.Bytes())
}

func (cc *CommentController) sendError(w http.ResponseWriter, r *http.Request, message string, status int, err error) {
	sendError(w, r, cc.renderer, cc.logger, message, status, err)
}
