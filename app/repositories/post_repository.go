package repositories

import (
	"errors"
	"fmt"

	"inkwell/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostRepository implements PostRepository using BadgerDB
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

// Put creates or replaces a post and keeps its slug index current.
func (r *BadgerPostRepository) Put(post *models.Post) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("invalid post %q: %w", post.ID, err)
	}
	stored := *post
	stored.Comments = nil

	return r.db.Update(func(txn *badger.Txn) error {
		// Drop the old slug mapping if the slug changed
		var existing models.Post
		err := getEntity(txn, postKey(post.ID), &existing)
		switch {
		case err == nil:
			if existing.Slug.Current != post.Slug.Current {
				if err := txn.Delete(slugKey(existing.Slug.Current)); err != nil {
					return err
				}
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}

		// Refuse a slug already owned by another post
		item, err := txn.Get(slugKey(post.Slug.Current))
		if err == nil {
			owner, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(owner) != post.ID {
				return fmt.Errorf("slug %q already used by post %s", post.Slug.Current, owner)
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := marshalEntity(&stored)
		if err != nil {
			return err
		}
		if err := txn.Set(postKey(post.ID), data); err != nil {
			return err
		}
		return txn.Set(slugKey(post.Slug.Current), []byte(post.ID))
	})
}

// GetByID retrieves a post by ID
func (r *BadgerPostRepository) GetByID(id string) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetBySlug retrieves a post through the slug index
func (r *BadgerPostRepository) GetBySlug(slug string) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(slugKey(slug))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getEntity(txn, postKey(string(id)), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List retrieves every post in key order
func (r *BadgerPostRepository) List() ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var post models.Post
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal post: %w", err)
			}
			posts = append(posts, &post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Delete deletes a post and its slug mapping
func (r *BadgerPostRepository) Delete(id string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		var post models.Post
		if err := getEntity(txn, postKey(id), &post); err != nil {
			return err
		}
		if err := txn.Delete(slugKey(post.Slug.Current)); err != nil {
			return err
		}
		return txn.Delete(postKey(id))
	})
}
