package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/store"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByHandle(ctx context.Context, handle string) (*models.User, error)
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	UpdateUser(ctx context.Context, handle string, fields store.Document) error
}

// DocumentUserRepository implements UserRepository on a document store.
// Users are keyed by handle.
type DocumentUserRepository struct {
	store store.Store
}

// NewDocumentUserRepository creates a new DocumentUserRepository
func NewDocumentUserRepository(s store.Store) *DocumentUserRepository {
	return &DocumentUserRepository{store: s}
}

// CreateUser stores a new user; the handle must be unused
func (r *DocumentUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.Handle == "" {
		return models.NewValidationError("handle is required")
	}
	if user.CreatedAt == "" {
		user.CreatedAt = models.Timestamp(time.Now())
	}
	err := r.store.Create(ctx, store.CollectionUsers, user.Handle, user.Document())
	if errors.Is(err, store.ErrAlreadyExists) {
		return models.NewConflictError("handle already taken")
	}
	return models.FromStore(err, "user", user.Handle)
}

// GetUserByHandle retrieves a user by handle
func (r *DocumentUserRepository) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	snap, err := r.store.Get(ctx, store.CollectionUsers, handle)
	if err != nil {
		return nil, models.FromStore(err, "user", handle)
	}
	user := models.UserFromDocument(snap.Data)
	if user.Handle == "" {
		user.Handle = snap.ID
	}
	return user, nil
}

// GetUserByUID retrieves a user by auth provider UID
func (r *DocumentUserRepository) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	snaps, err := r.store.Query(ctx, store.Where(store.CollectionUsers, models.FieldUserID, uid).Take(1))
	if err != nil {
		return nil, models.FromStore(err, "user", uid)
	}
	if len(snaps) == 0 {
		return nil, models.NewNotFoundError("user", uid)
	}
	user := models.UserFromDocument(snaps[0].Data)
	if user.Handle == "" {
		user.Handle = snaps[0].ID
	}
	return user, nil
}

// UpdateUser merges fields into the user document
func (r *DocumentUserRepository) UpdateUser(ctx context.Context, handle string, fields store.Document) error {
	return models.FromStore(r.store.Update(ctx, store.CollectionUsers, handle, fields), "user", handle)
}
