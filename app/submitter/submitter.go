// Package submitter drives the reader-facing comment form.
package submitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"inkwell/app/logger"
	"inkwell/app/models"

	"github.com/goccy/go-json"
)

// ErrInvalidTransition is returned when an action does not apply to the
// form's current state.
var ErrInvalidTransition = errors.New("submitter: invalid state transition")

// State of a comment form.
type State int

const (
	Editing State = iota
	Submitting
	Submitted
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Submitter delivers a validated comment.
type Submitter interface {
	Submit(ctx context.Context, form models.CommentForm) error
}

// Form is one reader's comment form.
type Form struct {
	mu        sync.Mutex
	state     State
	values    models.CommentForm
	errors    models.FormErrors
	lastError error

	submitter Submitter
	logger    *logger.Logger
}

func NewForm(postID string, s Submitter, log *logger.Logger) *Form {
	return &Form{
		state:     Editing,
		values:    models.CommentForm{PostID: postID},
		submitter: s,
		logger:    log,
	}
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Values returns the last input, so a rejected form can be re-filled.
func (f *Form) Values() models.CommentForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Errors returns the required-field messages of the last attempt.
func (f *Form) Errors() models.FormErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors
}

// LastError is the delivery failure of the last submission, if any.
// Readers are not shown it.
func (f *Form) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastError
}

// Submit validates input and delivers it. Missing fields keep the form in
// Editing and return their messages without a delivery attempt. Otherwise
// the form ends in Submitted whether or not delivery succeeded.
func (f *Form) Submit(ctx context.Context, input models.CommentForm) (models.FormErrors, error) {
	f.mu.Lock()
	if f.state != Editing {
		state := f.state
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: submit while %s", ErrInvalidTransition, state)
	}
	if input.PostID == "" {
		input.PostID = f.values.PostID
	}
	f.values = input
	if errs := f.values.Validate(); errs != nil {
		f.errors = errs
		f.mu.Unlock()
		return errs, nil
	}
	f.errors = nil
	f.state = Submitting
	values := f.values
	f.mu.Unlock()

	err := f.submitter.Submit(ctx, values)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastError = err
	if err != nil {
		f.logger.Error("comment submission for post %s failed: %v", values.PostID, err)
	}
	f.state = Submitted
	return nil, nil
}

// Acknowledge dismisses the thank-you panel and resets the form.
func (f *Form) Acknowledge() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Submitted {
		return fmt.Errorf("%w: acknowledge while %s", ErrInvalidTransition, f.state)
	}
	f.state = Editing
	f.values = models.CommentForm{PostID: f.values.PostID}
	f.errors = nil
	f.lastError = nil
	return nil
}

// HTTPSubmitter posts comments to a createComment endpoint.
type HTTPSubmitter struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPSubmitter(endpoint string, timeout time.Duration) *HTTPSubmitter {
	return &HTTPSubmitter{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSubmitter) Submit(ctx context.Context, form models.CommentForm) error {
	body, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("encode comment: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post comment: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("post comment: status %d: %s", res.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// CommentCreator is the in-process comment write path.
type CommentCreator interface {
	CreateComment(ctx context.Context, form models.CommentForm) (*models.Comment, error)
}

// ServiceSubmitter hands comments straight to the comment service.
type ServiceSubmitter struct {
	Service CommentCreator
}

func (s ServiceSubmitter) Submit(ctx context.Context, form models.CommentForm) error {
	_, err := s.Service.CreateComment(ctx, form)
	return err
}
