package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/google/uuid"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetAllPosts(ctx context.Context, limit int) ([]models.Post, error)
	GetPostsByAuthor(ctx context.Context, handle string) ([]models.Post, error)
	GetPostIDsByAuthor(ctx context.Context, handle string) ([]string, error)
	DeletePost(ctx context.Context, id string) error
	IncrementLikesCount(ctx context.Context, postID string, delta int64) (int64, error)
	IncrementCommentsCount(ctx context.Context, postID string, delta int64) (int64, error)
}

// DocumentPostRepository implements PostRepository on a document store
type DocumentPostRepository struct {
	store store.Store
}

// NewDocumentPostRepository creates a new DocumentPostRepository
func NewDocumentPostRepository(s store.Store) *DocumentPostRepository {
	return &DocumentPostRepository{store: s}
}

// CreatePost assigns an ID and creation time when missing and stores the post
func (r *DocumentPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt == "" {
		post.CreatedAt = models.Timestamp(time.Now())
	}
	err := r.store.Create(ctx, store.CollectionPosts, post.ID, post.Document())
	return models.FromStore(err, "post", post.ID)
}

// GetPostByID retrieves a post by ID
func (r *DocumentPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	snap, err := r.store.Get(ctx, store.CollectionPosts, id)
	if err != nil {
		return nil, models.FromStore(err, "post", id)
	}
	return models.PostFromDocument(snap.ID, snap.Data), nil
}

// GetAllPosts retrieves the newest posts
func (r *DocumentPostRepository) GetAllPosts(ctx context.Context, limit int) ([]models.Post, error) {
	q := store.Query{Collection: store.CollectionPosts}.Order(models.FieldCreatedAt, store.Desc).Take(limit)
	return r.find(ctx, q)
}

// GetPostsByAuthor retrieves a user's posts, newest first
func (r *DocumentPostRepository) GetPostsByAuthor(ctx context.Context, handle string) ([]models.Post, error) {
	q := store.Where(store.CollectionPosts, models.FieldAuthorHandle, handle).Order(models.FieldCreatedAt, store.Desc)
	return r.find(ctx, q)
}

// GetPostIDsByAuthor retrieves only the IDs of a user's posts
func (r *DocumentPostRepository) GetPostIDsByAuthor(ctx context.Context, handle string) ([]string, error) {
	return ids(ctx, r.store, store.Where(store.CollectionPosts, models.FieldAuthorHandle, handle), "post")
}

// DeletePost deletes a post by ID
func (r *DocumentPostRepository) DeletePost(ctx context.Context, id string) error {
	return models.FromStore(r.store.Delete(ctx, store.CollectionPosts, id), "post", id)
}

// IncrementLikesCount atomically adds delta to the like counter
func (r *DocumentPostRepository) IncrementLikesCount(ctx context.Context, postID string, delta int64) (int64, error) {
	n, err := r.store.Increment(ctx, store.CollectionPosts, postID, models.FieldLikeCount, delta)
	return n, models.FromStore(err, "post", postID)
}

// IncrementCommentsCount atomically adds delta to the comment counter
func (r *DocumentPostRepository) IncrementCommentsCount(ctx context.Context, postID string, delta int64) (int64, error) {
	n, err := r.store.Increment(ctx, store.CollectionPosts, postID, models.FieldCommentCount, delta)
	return n, models.FromStore(err, "post", postID)
}

func (r *DocumentPostRepository) find(ctx context.Context, q store.Query) ([]models.Post, error) {
	snaps, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, models.FromStore(err, "posts", "")
	}
	posts := make([]models.Post, 0, len(snaps))
	for _, s := range snaps {
		posts = append(posts, *models.PostFromDocument(s.ID, s.Data))
	}
	return posts, nil
}

// ids runs q and returns the matching document IDs.
func ids(ctx context.Context, s store.Store, q store.Query, resource string) ([]string, error) {
	snaps, err := s.Query(ctx, q)
	if err != nil {
		return nil, models.FromStore(err, resource, "")
	}
	out := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, snap.ID)
	}
	return out, nil
}
