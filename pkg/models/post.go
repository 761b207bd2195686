package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is a published or draft post
type Post struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPost returns an unpublished post
func NewPost(title, body string) *Post {
	return &Post{
		ID:        uuid.New(),
		Title:     title,
		Body:      body,
		Published: false,
		CreatedAt: time.Now().UTC(),
	}
}
