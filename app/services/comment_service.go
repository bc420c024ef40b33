package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"inkwell/app/logger"
	"inkwell/app/models"
	"inkwell/app/queue"
	"inkwell/app/repositories"
)

// ValidationError lists the missing fields of a rejected comment.
type ValidationError struct {
	Fields models.FormErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid comment: missing " + strings.Join(keys, ", ")
}

// CommentService handles business logic for comments
type CommentService struct {
	repo     repositories.ContentRepository
	notifier queue.Notifier
	logger   *logger.Logger
}

// NewCommentService creates a new CommentService. A nil notifier disables
// moderation messages.
func NewCommentService(repo repositories.ContentRepository, notifier queue.Notifier, log *logger.Logger) *CommentService {
	if notifier == nil {
		notifier = queue.NoopNotifier{}
	}
	return &CommentService{
		repo:     repo,
		notifier: notifier,
		logger:   log,
	}
}

// CreateComment stores a pending comment and tells moderators about it.
func (s *CommentService) CreateComment(ctx context.Context, form models.CommentForm) (*models.Comment, error) {
	if errs := form.Validate(); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}

	comment := form.ToComment()
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	s.logger.Info("comment %s created for post %s, awaiting approval", comment.ID, comment.Post.Ref)

	if err := s.notifier.NotifyPending(ctx, comment); err != nil {
		s.logger.Warn("moderation notification for comment %s failed: %v", comment.ID, err)
	}
	return comment, nil
}
