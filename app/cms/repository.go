package cms

import (
	"context"
	"fmt"

	"inkwell/app/models"
	"inkwell/app/repositories"
)

// Repository serves content straight from the CMS.
type Repository struct {
	client *Client
}

var _ repositories.ContentRepository = (*Repository)(nil)

func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := r.client.Fetch(ctx, AllPostsQuery, nil, &posts); err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	return posts, nil
}

func (r *Repository) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post *models.Post
	if err := r.client.Fetch(ctx, PostBySlugQuery, map[string]any{"slug": slug}, &post); err != nil {
		return nil, fmt.Errorf("failed to fetch post %q: %w", slug, err)
	}
	if post == nil {
		return nil, repositories.ErrNotFound
	}
	post.Comments = post.ApprovedComments()
	return post, nil
}

func (r *Repository) ListSlugs(ctx context.Context) ([]models.SlugEntry, error) {
	var slugs []models.SlugEntry
	if err := r.client.Fetch(ctx, AllSlugsQuery, nil, &slugs); err != nil {
		return nil, fmt.Errorf("failed to fetch slugs: %w", err)
	}
	return slugs, nil
}

type commentDocument struct {
	Type string `json:"_type"`
	*models.Comment
}

// CreateComment writes a pending comment document.
func (r *Repository) CreateComment(ctx context.Context, comment *models.Comment) error {
	comment.BeforeCreate()
	if err := comment.Validate(); err != nil {
		return fmt.Errorf("invalid comment: %w", err)
	}
	results, err := r.client.Mutate(ctx, Mutation{Create: commentDocument{Type: "comment", Comment: comment}})
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	if len(results) > 0 {
		comment.ID = results[0].ID
	}
	return nil
}
