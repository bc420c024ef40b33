package repositories

import (
	"context"

	"inkwell/app/models"
)

// ContentRepository is the read/write surface the pages and the comment
// endpoint need from a content store.
type ContentRepository interface {
	// ListPosts returns post summaries in store order.
	ListPosts(ctx context.Context) ([]models.Post, error)
	// GetPostBySlug returns the full post with its approved comments, or
	// ErrNotFound.
	GetPostBySlug(ctx context.Context, slug string) (*models.Post, error)
	// ListSlugs returns the id and slug of every post.
	ListSlugs(ctx context.Context) ([]models.SlugEntry, error)
	// CreateComment stores a pending comment.
	CreateComment(ctx context.Context, comment *models.Comment) error
}

// PostRepository defines the interface for local post data access
type PostRepository interface {
	Put(post *models.Post) error
	GetByID(id string) (*models.Post, error)
	GetBySlug(slug string) (*models.Post, error)
	List() ([]*models.Post, error)
	Delete(id string) error
}

// CommentRepository defines the interface for local comment data access
type CommentRepository interface {
	Create(comment *models.Comment) error
	GetByID(id string) (*models.Comment, error)
	ListByPost(postID string, approvedOnly bool) ([]*models.Comment, error)
	SetApproval(id string, approved bool) error
	Delete(id string) error
}
