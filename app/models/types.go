package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Post represents a blog post as returned by the content store.
type Post struct {
	ID          string    `json:"_id" validate:"required"`
	CreatedAt   time.Time `json:"_createdAt"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Author      Author    `json:"author"`
	MainImage   Image     `json:"mainImage"`
	Slug        Slug      `json:"slug"`
	Body        []Block   `json:"body,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`
}

// Author is embedded by value in a fetched post.
type Author struct {
	Name  string `json:"name"`
	Image Image  `json:"image"`
}

// Comment represents a reader comment on a blog post.
type Comment struct {
	ID        string    `json:"_id,omitempty"`
	CreatedAt time.Time `json:"_createdAt"`
	Post      Reference `json:"post"`
	Name      string    `json:"name" validate:"required"`
	Email     string    `json:"email" validate:"required"`
	Comment   string    `json:"comment" validate:"required"`
	Approved  bool      `json:"approved"`
}

// Reference points at another document by id.
type Reference struct {
	Type string `json:"_type,omitempty"`
	Ref  string `json:"_ref"`
}

// Image is an opaque pointer into the asset store.
type Image struct {
	Type  string    `json:"_type,omitempty"`
	Asset Reference `json:"asset"`
}

// Slug wraps the URL-safe identifier of a post.
type Slug struct {
	Type    string `json:"_type,omitempty"`
	Current string `json:"current"`
}

// SlugEntry is one row of the static paths query.
type SlugEntry struct {
	ID   string `json:"_id"`
	Slug Slug   `json:"slug"`
}

// CommentForm is the reader-supplied input of the comment form.
type CommentForm struct {
	PostID  string `json:"_id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required"`
	Comment string `json:"comment" validate:"required"`
}
