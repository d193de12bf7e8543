package models

import "github.com/anonto42/nano-midea/socialape/internal/store"

// Comment represents a comment on a post. There is no back-link stored on the post.
type Comment struct {
	ID             string `json:"commentId"`
	PostID         string `json:"postId"`
	AuthorHandle   string `json:"authorHandle"`
	AuthorImageURL string `json:"authorImageUrl"`
	Body           string `json:"body"`
	CreatedAt      string `json:"createdAt"`
}

func (c *Comment) Document() store.Document {
	return store.Document{
		FieldPostID:         c.PostID,
		FieldAuthorHandle:   c.AuthorHandle,
		FieldAuthorImageURL: c.AuthorImageURL,
		FieldBody:           c.Body,
		FieldCreatedAt:      c.CreatedAt,
	}
}

func CommentFromDocument(id string, d store.Document) *Comment {
	return &Comment{
		ID:             id,
		PostID:         d.String(FieldPostID),
		AuthorHandle:   d.String(FieldAuthorHandle),
		AuthorImageURL: d.String(FieldAuthorImageURL),
		Body:           d.String(FieldBody),
		CreatedAt:      d.String(FieldCreatedAt),
	}
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=500"`
}
