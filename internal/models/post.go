package models

import (
	"time"

	"github.com/anonto42/nano-midea/socialape/internal/store"
)

// TimeLayout is a fixed-width UTC ISO-8601 layout, so stored timestamps sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t with TimeLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Post represents a short message. Counters and the author image are denormalized.
type Post struct {
	ID             string `json:"postId"`
	Body           string `json:"body"`
	AuthorHandle   string `json:"authorHandle"`
	AuthorImageURL string `json:"authorImageUrl"`
	CreatedAt      string `json:"createdAt"`
	LikeCount      int64  `json:"likeCount"`
	CommentCount   int64  `json:"commentCount"`
}

// Post document fields
const (
	FieldBody           = "body"
	FieldAuthorHandle   = "authorHandle"
	FieldAuthorImageURL = "authorImageUrl"
	FieldCreatedAt      = "createdAt"
	FieldLikeCount      = "likeCount"
	FieldCommentCount   = "commentCount"
	FieldPostID         = "postId"
)

func (p *Post) Document() store.Document {
	return store.Document{
		FieldBody:           p.Body,
		FieldAuthorHandle:   p.AuthorHandle,
		FieldAuthorImageURL: p.AuthorImageURL,
		FieldCreatedAt:      p.CreatedAt,
		FieldLikeCount:      p.LikeCount,
		FieldCommentCount:   p.CommentCount,
	}
}

func PostFromDocument(id string, d store.Document) *Post {
	return &Post{
		ID:             id,
		Body:           d.String(FieldBody),
		AuthorHandle:   d.String(FieldAuthorHandle),
		AuthorImageURL: d.String(FieldAuthorImageURL),
		CreatedAt:      d.String(FieldCreatedAt),
		LikeCount:      d.Int(FieldLikeCount),
		CommentCount:   d.Int(FieldCommentCount),
	}
}

// PostWithComments is a post together with its comments, newest first
type PostWithComments struct {
	*Post
	Comments []Comment `json:"comments"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Body string `json:"body" validate:"required,min=1,max=280"`
}
