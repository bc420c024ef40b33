package models

import (
	"errors"
	"fmt"
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if p.Slug.Current == "" {
		return errors.New("slug cannot be empty")
	}
	return nil
}

// Path returns the detail route of the post.
func (p *Post) Path() string {
	return SlugPath(p.Slug.Current)
}

// SlugPath returns the detail route for a slug.
func SlugPath(slug string) string {
	return fmt.Sprintf("/post/%s", slug)
}

// ApprovedComments returns only the comments a moderator has approved.
func (p *Post) ApprovedComments() []Comment {
	approved := make([]Comment, 0, len(p.Comments))
	for _, c := range p.Comments {
		if c.Approved {
			approved = append(approved, c)
		}
	}
	return approved
}

// Summary strips the fields the listing page does not need.
func (p *Post) Summary() Post {
	return Post{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Author:      p.Author,
		MainImage:   p.MainImage,
		Slug:        p.Slug,
	}
}
