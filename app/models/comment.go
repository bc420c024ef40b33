package models

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Required-field messages shown under the comment form.
var requiredMessages = map[string]string{
	"name":    " - The Name Field is required",
	"email":   " - The Email Field is required",
	"comment": " - The Comment Field is required",
	"_id":     "post id is required",
}

// FormErrors maps a form field name to the message displayed for it.
type FormErrors map[string]string

// Validate checks if the comment meets all validation requirements
func (c *Comment) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Post.Ref == "" {
		return errors.New("post reference cannot be empty")
	}
	return nil
}

// BeforeCreate sets up any necessary fields before creation
func (c *Comment) BeforeCreate() {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Approved = false
}

// SetPost points the comment at its parent post.
func (c *Comment) SetPost(post *Post) error {
	if post == nil {
		return errors.New("post cannot be nil")
	}
	c.Post = Reference{Type: "reference", Ref: post.ID}
	return nil
}

// UnmarshalJSON accepts the post id as either "_id" or "postId".
func (f *CommentForm) UnmarshalJSON(data []byte) error {
	type plain CommentForm
	var aux struct {
		plain
		AltPostID string `json:"postId"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = CommentForm(aux.plain)
	if f.PostID == "" {
		f.PostID = aux.AltPostID
	}
	return nil
}

// Normalize trims surrounding whitespace so blank input counts as missing.
func (f *CommentForm) Normalize() {
	f.PostID = strings.TrimSpace(f.PostID)
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Comment = strings.TrimSpace(f.Comment)
}

// Validate returns the required-field messages for every missing field, or
// nil when the form can be submitted.
func (f *CommentForm) Validate() FormErrors {
	f.Normalize()
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FormErrors{"form": err.Error()}
	}
	out := FormErrors{}
	for _, fe := range verrs {
		key := fieldKey(fe.Field())
		if msg, ok := requiredMessages[key]; ok && fe.Tag() == "required" {
			out[key] = msg
			continue
		}
		out[key] = fe.Error()
	}
	return out
}

// ToComment builds the pending comment record for the form.
func (f *CommentForm) ToComment() *Comment {
	c := &Comment{
		Post:    Reference{Type: "reference", Ref: f.PostID},
		Name:    f.Name,
		Email:   f.Email,
		Comment: f.Comment,
	}
	c.BeforeCreate()
	return c
}

func fieldKey(field string) string {
	if field == "PostID" {
		return "_id"
	}
	return strings.ToLower(field)
}
