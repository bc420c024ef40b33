package repositories

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"inkwell/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Dataset is the badger-backed local content store. It serves the same
// reads as the CMS so the site can run offline.
type Dataset struct {
	Posts    PostRepository
	Comments CommentRepository
}

var _ ContentRepository = (*Dataset)(nil)

// NewDataset wraps an open badger database.
func NewDataset(db *badger.DB) *Dataset {
	return &Dataset{
		Posts:    NewBadgerPostRepository(db),
		Comments: NewBadgerCommentRepository(db),
	}
}

// ListPosts returns post summaries in key order.
func (d *Dataset) ListPosts(ctx context.Context) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	posts, err := d.Posts.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Summary())
	}
	return out, nil
}

// GetPostBySlug returns the post with its approved comments attached.
func (d *Dataset) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	post, err := d.Posts.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	comments, err := d.Comments.ListByPost(post.ID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of %s: %w", post.ID, err)
	}
	post.Comments = make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		post.Comments = append(post.Comments, *c)
	}
	return post, nil
}

// ListSlugs returns the id and slug of every post.
func (d *Dataset) ListSlugs(ctx context.Context) ([]models.SlugEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	posts, err := d.Posts.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	out := make([]models.SlugEntry, 0, len(posts))
	for _, p := range posts {
		out = append(out, models.SlugEntry{ID: p.ID, Slug: models.Slug{Current: p.Slug.Current}})
	}
	return out, nil
}

// CreateComment stores a pending comment on an existing post.
func (d *Dataset) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	post, err := d.Posts.GetByID(comment.Post.Ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("post %s: %w", comment.Post.Ref, ErrNotFound)
		}
		return err
	}
	if err := comment.SetPost(post); err != nil {
		return err
	}
	comment.BeforeCreate()
	return d.Comments.Create(comment)
}

// SetApproval marks a comment approved or pending.
func (d *Dataset) SetApproval(commentID string, approved bool) error {
	return d.Comments.SetApproval(commentID, approved)
}

// DeleteComment removes a comment and returns what was removed.
func (d *Dataset) DeleteComment(commentID string) (*models.Comment, error) {
	comment, err := d.Comments.GetByID(commentID)
	if err != nil {
		return nil, err
	}
	if err := d.Comments.Delete(commentID); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeletePost removes the post with slug together with all of its
// comments. It returns how many comments went with it.
func (d *Dataset) DeletePost(slug string) (int, error) {
	post, err := d.Posts.GetBySlug(slug)
	if err != nil {
		return 0, err
	}
	comments, err := d.Comments.ListByPost(post.ID, false)
	if err != nil {
		return 0, err
	}
	for _, c := range comments {
		if err := d.Comments.Delete(c.ID); err != nil {
			return 0, fmt.Errorf("failed to delete comment %s: %w", c.ID, err)
		}
	}
	if err := d.Posts.Delete(post.ID); err != nil {
		return 0, err
	}
	return len(comments), nil
}

// ImportStats counts what an Import stored.
type ImportStats struct {
	Posts    int
	Authors  int
	Comments int
	Skipped  int
}

type importDoc struct {
	Type string `json:"_type"`
	ID   string `json:"_id"`
}

// importPost mirrors models.Post but keeps the author undecoded, since an
// export carries a reference where the store keeps the author by value.
type importPost struct {
	models.Post
	Author json.RawMessage `json:"author"`
}

// Import loads an NDJSON dataset export. Author references are resolved
// so posts are stored denormalized. Drafts and unknown document types are
// skipped.
func (d *Dataset) Import(r io.Reader) (ImportStats, error) {
	var stats ImportStats
	authors := map[string]models.Author{}
	var posts []importPost
	var comments []models.Comment

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var doc importDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		if strings.HasPrefix(doc.ID, "drafts.") {
			stats.Skipped++
			continue
		}
		switch doc.Type {
		case "author":
			var a models.Author
			if err := json.Unmarshal([]byte(raw), &a); err != nil {
				return stats, fmt.Errorf("line %d: author: %w", line, err)
			}
			authors[doc.ID] = a
			stats.Authors++
		case "post":
			var p importPost
			if err := json.Unmarshal([]byte(raw), &p); err != nil {
				return stats, fmt.Errorf("line %d: post: %w", line, err)
			}
			posts = append(posts, p)
		case "comment":
			var c models.Comment
			if err := json.Unmarshal([]byte(raw), &c); err != nil {
				return stats, fmt.Errorf("line %d: comment: %w", line, err)
			}
			comments = append(comments, c)
		default:
			stats.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read dataset: %w", err)
	}

	for _, p := range posts {
		post := p.Post
		author, err := resolveAuthor(p.Author, authors)
		if err != nil {
			return stats, fmt.Errorf("post %s: %w", post.ID, err)
		}
		post.Author = author
		if err := d.Posts.Put(&post); err != nil {
			return stats, err
		}
		stats.Posts++
	}
	for i := range comments {
		if err := d.Comments.Create(&comments[i]); err != nil {
			return stats, fmt.Errorf("comment %s: %w", comments[i].ID, err)
		}
		stats.Comments++
	}
	return stats, nil
}

func resolveAuthor(raw json.RawMessage, authors map[string]models.Author) (models.Author, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return models.Author{}, nil
	}
	var ref models.Reference
	if err := json.Unmarshal(raw, &ref); err == nil && ref.Ref != "" {
		a, ok := authors[ref.Ref]
		if !ok {
			return models.Author{}, fmt.Errorf("unknown author %q", ref.Ref)
		}
		return a, nil
	}
	var a models.Author
	if err := json.Unmarshal(raw, &a); err != nil {
		return models.Author{}, fmt.Errorf("author: %w", err)
	}
	return a, nil
}
