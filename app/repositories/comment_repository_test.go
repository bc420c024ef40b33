package repositories

import (
	"testing"

	"inkwell/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testComment(postID, name string, approved bool) *models.Comment {
	return &models.Comment{
		Post:     models.Reference{Type: "reference", Ref: postID},
		Name:     name,
		Email:    name + "@example.com",
		Comment:  "hi from " + name,
		Approved: approved,
	}
}

func TestCommentRepository(t *testing.T) {
	repo := NewBadgerCommentRepository(newTestDB(t))

	t.Run("create assigns id", func(t *testing.T) {
		c := testComment("p1", "ann", false)
		require.NoError(t, repo.Create(c))
		assert.NotEmpty(t, c.ID)

		got, err := repo.GetByID(c.ID)
		require.NoError(t, err)
		assert.Equal(t, "ann", got.Name)
	})

	t.Run("create keeps imported id", func(t *testing.T) {
		c := testComment("p1", "bob", true)
		c.ID = "c-bob"
		require.NoError(t, repo.Create(c))
		assert.Equal(t, "c-bob", c.ID)
	})

	t.Run("invalid comment rejected", func(t *testing.T) {
		assert.Error(t, repo.Create(&models.Comment{Name: "x"}))
		assert.Error(t, repo.Create(testComment("", "x", false)))
	})

	t.Run("list by post", func(t *testing.T) {
		require.NoError(t, repo.Create(testComment("p2", "carol", true)))

		all, err := repo.ListByPost("p1", false)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		approved, err := repo.ListByPost("p1", true)
		require.NoError(t, err)
		require.Len(t, approved, 1)
		assert.Equal(t, "bob", approved[0].Name)
	})

	t.Run("set approval", func(t *testing.T) {
		require.NoError(t, repo.SetApproval("c-bob", false))
		approved, err := repo.ListByPost("p1", true)
		require.NoError(t, err)
		assert.Empty(t, approved)

		assert.ErrorIs(t, repo.SetApproval("missing", true), ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete("c-bob"))
		_, err := repo.GetByID("c-bob")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
