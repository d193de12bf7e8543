package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/google/uuid"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	CreateLike(ctx context.Context, like *models.Like) error
	GetLike(ctx context.Context, postID, handle string) (*models.Like, error)
	GetLikeByID(ctx context.Context, id string) (*models.Like, error)
	DeleteLike(ctx context.Context, id string) error
	GetLikesByAuthor(ctx context.Context, handle string) ([]models.Like, error)
	GetLikeIDsByPostID(ctx context.Context, postID string) ([]string, error)
}

// DocumentLikeRepository implements LikeRepository on a document store
type DocumentLikeRepository struct {
	store store.Store
}

// NewDocumentLikeRepository creates a new DocumentLikeRepository
func NewDocumentLikeRepository(s store.Store) *DocumentLikeRepository {
	return &DocumentLikeRepository{store: s}
}

// CreateLike stores a new like under a fresh ID
func (r *DocumentLikeRepository) CreateLike(ctx context.Context, like *models.Like) error {
	if like.ID == "" {
		like.ID = uuid.NewString()
	}
	if like.CreatedAt == "" {
		like.CreatedAt = models.Timestamp(time.Now())
	}
	err := r.store.Create(ctx, store.CollectionLikes, like.ID, like.Document())
	return models.FromStore(err, "like", like.ID)
}

// GetLike retrieves the like of handle on postID
func (r *DocumentLikeRepository) GetLike(ctx context.Context, postID, handle string) (*models.Like, error) {
	q := store.Where(store.CollectionLikes, models.FieldPostID, postID).
		And(models.FieldAuthorHandle, handle).
		Take(1)
	snaps, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, models.FromStore(err, "like", postID)
	}
	if len(snaps) == 0 {
		return nil, models.NewNotFoundError("like", postID)
	}
	return models.LikeFromDocument(snaps[0].ID, snaps[0].Data), nil
}

// GetLikeByID retrieves a like by ID
func (r *DocumentLikeRepository) GetLikeByID(ctx context.Context, id string) (*models.Like, error) {
	snap, err := r.store.Get(ctx, store.CollectionLikes, id)
	if err != nil {
		return nil, models.FromStore(err, "like", id)
	}
	return models.LikeFromDocument(snap.ID, snap.Data), nil
}

// DeleteLike deletes a like by ID
func (r *DocumentLikeRepository) DeleteLike(ctx context.Context, id string) error {
	return models.FromStore(r.store.Delete(ctx, store.CollectionLikes, id), "like", id)
}

// GetLikesByAuthor retrieves every like a user has given
func (r *DocumentLikeRepository) GetLikesByAuthor(ctx context.Context, handle string) ([]models.Like, error) {
	snaps, err := r.store.Query(ctx, store.Where(store.CollectionLikes, models.FieldAuthorHandle, handle))
	if err != nil {
		return nil, models.FromStore(err, "likes", handle)
	}
	likes := make([]models.Like, 0, len(snaps))
	for _, s := range snaps {
		likes = append(likes, *models.LikeFromDocument(s.ID, s.Data))
	}
	return likes, nil
}

// GetLikeIDsByPostID retrieves the IDs of every like on a post
func (r *DocumentLikeRepository) GetLikeIDsByPostID(ctx context.Context, postID string) ([]string, error) {
	return ids(ctx, r.store, store.Where(store.CollectionLikes, models.FieldPostID, postID), "likes")
}
