package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/google/uuid"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id string) (*models.Comment, error)
	GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error)
	GetCommentIDsByPostID(ctx context.Context, postID string) ([]string, error)
	DeleteComment(ctx context.Context, id string) error
}

// DocumentCommentRepository implements CommentRepository on a document store
type DocumentCommentRepository struct {
	store store.Store
}

// NewDocumentCommentRepository creates a new DocumentCommentRepository
func NewDocumentCommentRepository(s store.Store) *DocumentCommentRepository {
	return &DocumentCommentRepository{store: s}
}

// CreateComment stores a new comment under a fresh ID
func (r *DocumentCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt == "" {
		comment.CreatedAt = models.Timestamp(time.Now())
	}
	err := r.store.Create(ctx, store.CollectionComments, comment.ID, comment.Document())
	return models.FromStore(err, "comment", comment.ID)
}

// GetCommentByID retrieves a comment by ID
func (r *DocumentCommentRepository) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	snap, err := r.store.Get(ctx, store.CollectionComments, id)
	if err != nil {
		return nil, models.FromStore(err, "comment", id)
	}
	return models.CommentFromDocument(snap.ID, snap.Data), nil
}

// GetCommentsByPostID retrieves the comments of a post, newest first
func (r *DocumentCommentRepository) GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error) {
	q := store.Where(store.CollectionComments, models.FieldPostID, postID).Order(models.FieldCreatedAt, store.Desc)
	snaps, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, models.FromStore(err, "comments", postID)
	}
	comments := make([]models.Comment, 0, len(snaps))
	for _, s := range snaps {
		comments = append(comments, *models.CommentFromDocument(s.ID, s.Data))
	}
	return comments, nil
}

// GetCommentIDsByPostID retrieves the IDs of every comment on a post
func (r *DocumentCommentRepository) GetCommentIDsByPostID(ctx context.Context, postID string) ([]string, error) {
	return ids(ctx, r.store, store.Where(store.CollectionComments, models.FieldPostID, postID), "comments")
}

// DeleteComment deletes a comment by ID
func (r *DocumentCommentRepository) DeleteComment(ctx context.Context, id string) error {
	return models.FromStore(r.store.Delete(ctx, store.CollectionComments, id), "comment", id)
}
