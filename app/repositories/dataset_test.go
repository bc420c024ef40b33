package repositories

import (
	"context"
	"strings"
	"testing"

	"inkwell/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportNDJSON = `{"_type":"author","_id":"a1","name":"Ann","image":{"_type":"image","asset":{"_ref":"image-abc-10x10-png"}}}
{"_type":"post","_id":"p1","title":"Hello World","description":"intro","author":{"_type":"reference","_ref":"a1"},"slug":{"_type":"slug","current":"hello-world"},"body":[{"_type":"block","_key":"k1","style":"normal","children":[{"_type":"span","text":"Hi"}]}]}
{"_type":"post","_id":"drafts.p1","title":"Draft","slug":{"current":"draft"}}
{"_type":"comment","_id":"c1","post":{"_type":"reference","_ref":"p1"},"name":"Bob","email":"b@x.io","comment":"nice","approved":true}
{"_type":"comment","_id":"c2","post":{"_type":"reference","_ref":"p1"},"name":"Eve","email":"e@x.io","comment":"spam","approved":false}

{"_type":"sanity.imageAsset","_id":"image-abc-10x10-png"}
`

func importedDataset(t *testing.T) *Dataset {
	t.Helper()
	d := NewDataset(newTestDB(t))
	stats, err := d.Import(strings.NewReader(exportNDJSON))
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Posts: 1, Authors: 1, Comments: 2, Skipped: 2}, stats)
	return d
}

func TestDatasetImport(t *testing.T) {
	d := importedDataset(t)
	ctx := context.Background()

	t.Run("listing resolves author", func(t *testing.T) {
		posts, err := d.ListPosts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "Ann", posts[0].Author.Name)
		assert.Equal(t, "/post/hello-world", posts[0].Path())
		assert.Empty(t, posts[0].Body)
	})

	t.Run("detail carries approved comments only", func(t *testing.T) {
		post, err := d.GetPostBySlug(ctx, "hello-world")
		require.NoError(t, err)
		require.Len(t, post.Comments, 1)
		assert.Equal(t, "Bob", post.Comments[0].Name)
		require.Len(t, post.Body, 1)
		assert.Equal(t, "Hi", post.Body[0].PlainText())
	})

	t.Run("slugs", func(t *testing.T) {
		slugs, err := d.ListSlugs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.SlugEntry{{ID: "p1", Slug: models.Slug{Current: "hello-world"}}}, slugs)
	})

	t.Run("unknown slug", func(t *testing.T) {
		_, err := d.GetPostBySlug(ctx, "draft")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("approve moderated comment", func(t *testing.T) {
		require.NoError(t, d.SetApproval("c2", true))
		post, err := d.GetPostBySlug(ctx, "hello-world")
		require.NoError(t, err)
		assert.Len(t, post.Comments, 2)
	})
}

func TestDatasetImportErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad json", "{", "line 1"},
		{"unknown author", `{"_type":"post","_id":"p","title":"t","slug":{"current":"s"},"author":{"_ref":"nobody"}}`, "unknown author"},
		{"invalid post", `{"_type":"post","_id":"p","slug":{"current":"s"}}`, "invalid post"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDataset(newTestDB(t))
			_, err := d.Import(strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDatasetCreateComment(t *testing.T) {
	d := importedDataset(t)
	ctx := context.Background()

	c := &models.Comment{
		Post:     models.Reference{Ref: "p1"},
		Name:     "Zed",
		Email:    "z@x.io",
		Comment:  "first",
		Approved: true,
	}
	require.NoError(t, d.CreateComment(ctx, c))
	assert.False(t, c.Approved, "new comments start pending")
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, models.Reference{Type: "reference", Ref: "p1"}, c.Post)

	post, err := d.GetPostBySlug(ctx, "hello-world")
	require.NoError(t, err)
	assert.Len(t, post.Comments, 1)

	err = d.CreateComment(ctx, &models.Comment{Post: models.Reference{Ref: "ghost"}, Name: "a", Email: "b", Comment: "c"})
	assert.ErrorIs(t, err, ErrNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = d.ListPosts(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDatasetDeleteComment(t *testing.T) {
	d := importedDataset(t)
	ctx := context.Background()

	removed, err := d.DeleteComment("c1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", removed.Name)

	post, err := d.GetPostBySlug(ctx, "hello-world")
	require.NoError(t, err)
	assert.Empty(t, post.Comments)

	_, err = d.DeleteComment("c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatasetDeletePost(t *testing.T) {
	d := importedDataset(t)
	ctx := context.Background()

	n, err := d.DeletePost("hello-world")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = d.GetPostBySlug(ctx, "hello-world")
	assert.ErrorIs(t, err, ErrNotFound)
	comments, err := d.Comments.ListByPost("p1", false)
	require.NoError(t, err)
	assert.Empty(t, comments)

	_, err = d.DeletePost("hello-world")
	assert.ErrorIs(t, err, ErrNotFound)
}
