package models

import "github.com/anonto42/nano-midea/socialape/internal/store"

// Like represents a like on a post. At most one exists per (PostID, AuthorHandle).
type Like struct {
	ID           string `json:"likeId"`
	PostID       string `json:"postId"`
	AuthorHandle string `json:"authorHandle"`
	CreatedAt    string `json:"createdAt"`
}

func (l *Like) Document() store.Document {
	return store.Document{
		FieldPostID:       l.PostID,
		FieldAuthorHandle: l.AuthorHandle,
		FieldCreatedAt:    l.CreatedAt,
	}
}

func LikeFromDocument(id string, d store.Document) *Like {
	return &Like{
		ID:           id,
		PostID:       d.String(FieldPostID),
		AuthorHandle: d.String(FieldAuthorHandle),
		CreatedAt:    d.String(FieldCreatedAt),
	}
}
