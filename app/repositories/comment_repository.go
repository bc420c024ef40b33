package repositories

import (
	"bytes"
	"fmt"

	"inkwell/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// BadgerCommentRepository implements CommentRepository using BadgerDB
type BadgerCommentRepository struct {
	db *badger.DB
}

// NewBadgerCommentRepository creates a new BadgerCommentRepository
func NewBadgerCommentRepository(db *badger.DB) *BadgerCommentRepository {
	return &BadgerCommentRepository{db: db}
}

// Create stores a new comment. Comments imported with an id keep it.
func (r *BadgerCommentRepository) Create(comment *models.Comment) error {
	if err := comment.Validate(); err != nil {
		return fmt.Errorf("invalid comment: %w", err)
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}

	data, err := marshalEntity(comment)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		// Save comment with post ID in key for efficient listing
		return txn.Set(commentKey(comment.Post.Ref, comment.ID), data)
	})
}

// GetByID retrieves a comment by ID
func (r *BadgerCommentRepository) GetByID(id string) (*models.Comment, error) {
	var found *models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		key, err := findCommentKey(txn, id)
		if err != nil {
			return err
		}
		var comment models.Comment
		if err := getEntity(txn, key, &comment); err != nil {
			return err
		}
		found = &comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListByPost retrieves the comments of a post
func (r *BadgerCommentRepository) ListByPost(postID string, approvedOnly bool) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(fmt.Sprintf("%s%s:", CommentKeyPrefix, postID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var comment models.Comment
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &comment)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal comment: %w", err)
			}
			if approvedOnly && !comment.Approved {
				continue
			}
			comments = append(comments, &comment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// SetApproval flips the moderation flag of a comment
func (r *BadgerCommentRepository) SetApproval(id string, approved bool) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key, err := findCommentKey(txn, id)
		if err != nil {
			return err
		}
		var comment models.Comment
		if err := getEntity(txn, key, &comment); err != nil {
			return err
		}
		comment.Approved = approved
		data, err := marshalEntity(&comment)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// Delete deletes a comment by ID
func (r *BadgerCommentRepository) Delete(id string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key, err := findCommentKey(txn, id)
		if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// findCommentKey scans the comment keyspace for a comment id suffix.
func findCommentKey(txn *badger.Txn, id string) ([]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	suffix := []byte(":" + id)
	prefix := []byte(CommentKeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().Key()
		if bytes.HasSuffix(key, suffix) {
			return it.Item().KeyCopy(nil), nil
		}
	}
	return nil, ErrNotFound
}
