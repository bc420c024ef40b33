package mock

import (
	"context"
	"sync"

	"inkwell/app/models"
	"inkwell/app/repositories"

	"github.com/google/uuid"
)

// ContentRepository is an in-memory repositories.ContentRepository.
type ContentRepository struct {
	posts    []models.Post
	comments []models.Comment
	mutex    sync.RWMutex

	// Err, when set, is returned by every call.
	Err error
	// Calls counts GetPostBySlug invocations per slug.
	Calls map[string]int
}

var _ repositories.ContentRepository = (*ContentRepository)(nil)

func NewContentRepository(posts ...models.Post) *ContentRepository {
	return &ContentRepository{
		posts: posts,
		Calls: make(map[string]int),
	}
}

func (m *ContentRepository) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.posts = nil
	m.comments = nil
	m.Calls = make(map[string]int)
}

// AddPost appends a post to the store.
func (m *ContentRepository) AddPost(post models.Post) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.posts = append(m.posts, post)
}

// AddComment stores a comment as-is, approved or not.
func (m *ContentRepository) AddComment(comment models.Comment) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.comments = append(m.comments, comment)
}

// SetErr swaps the injected failure.
func (m *ContentRepository) SetErr(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Err = err
}

// Comments returns every stored comment.
func (m *ContentRepository) Comments() []models.Comment {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return append([]models.Comment(nil), m.comments...)
}

// CallCount returns how many times a slug was fetched.
func (m *ContentRepository) CallCount(slug string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.Calls[slug]
}

func (m *ContentRepository) ListPosts(ctx context.Context) ([]models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, p.Summary())
	}
	return out, nil
}

func (m *ContentRepository) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Calls[slug]++
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.posts {
		if p.Slug.Current != slug {
			continue
		}
		post := p
		post.Comments = nil
		for _, c := range m.comments {
			if c.Post.Ref == post.ID && c.Approved {
				post.Comments = append(post.Comments, c)
			}
		}
		return &post, nil
	}
	return nil, repositories.ErrNotFound
}

func (m *ContentRepository) ListSlugs(ctx context.Context) ([]models.SlugEntry, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.SlugEntry, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, models.SlugEntry{ID: p.ID, Slug: p.Slug})
	}
	return out, nil
}

func (m *ContentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.BeforeCreate()
	m.comments = append(m.comments, *comment)
	return nil
}
