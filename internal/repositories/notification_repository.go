package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/store"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	SaveNotification(ctx context.Context, notification *models.Notification) error
	GetNotificationByID(ctx context.Context, id string) (*models.Notification, error)
	GetByRecipient(ctx context.Context, recipient string, limit int, before string) ([]models.Notification, error)
	GetNotificationIDsByPostID(ctx context.Context, postID string) ([]string, error)
	DeleteNotification(ctx context.Context, id string) error
	MarkAsRead(ctx context.Context, ids []string) (int, error)
	DismissNotifications(ctx context.Context, ids []string) (int, error)
}

// DocumentNotificationRepository implements NotificationRepository on a document store
type DocumentNotificationRepository struct {
	store store.Store
}

// NewDocumentNotificationRepository creates a new DocumentNotificationRepository
func NewDocumentNotificationRepository(s store.Store) *DocumentNotificationRepository {
	return &DocumentNotificationRepository{store: s}
}

// SaveNotification overwrites the notification stored under its ID. Writing the same
// notification twice leaves exactly one document.
func (r *DocumentNotificationRepository) SaveNotification(ctx context.Context, n *models.Notification) error {
	err := r.store.Set(ctx, store.CollectionNotifications, n.ID, n.Document())
	return models.FromStore(err, "notification", n.ID)
}

func (r *DocumentNotificationRepository) GetNotificationByID(ctx context.Context, id string) (*models.Notification, error) {
	snap, err := r.store.Get(ctx, store.CollectionNotifications, id)
	if err != nil {
		return nil, models.FromStore(err, "notification", id)
	}
	return models.NotificationFromDocument(snap.ID, snap.Data), nil
}

// GetByRecipient pages through a user's undismissed notifications, newest first. before is
// the models.NotificationCursor of the last notification of the previous page, or empty
// for the first page.
func (r *DocumentNotificationRepository) GetByRecipient(ctx context.Context, recipient string, limit int, before string) ([]models.Notification, error) {
	q := store.Where(store.CollectionNotifications, models.FieldRecipient, recipient).
		And(models.FieldDismissed, false).
		Order(models.FieldCreatedAt, store.Desc).
		Take(limit)
	if before != "" {
		createdAt, id := models.ParseNotificationCursor(before)
		q = q.StartAfter(createdAt, id)
	}
	snaps, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, models.FromStore(err, "notifications", recipient)
	}
	out := make([]models.Notification, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, *models.NotificationFromDocument(s.ID, s.Data))
	}
	return out, nil
}

func (r *DocumentNotificationRepository) GetNotificationIDsByPostID(ctx context.Context, postID string) ([]string, error) {
	return ids(ctx, r.store, store.Where(store.CollectionNotifications, models.FieldPostID, postID), "notifications")
}

func (r *DocumentNotificationRepository) DeleteNotification(ctx context.Context, id string) error {
	return models.FromStore(r.store.Delete(ctx, store.CollectionNotifications, id), "notification", id)
}

// MarkAsRead flags the given notifications as read in chunked batches.
func (r *DocumentNotificationRepository) MarkAsRead(ctx context.Context, ids []string) (int, error) {
	ops := make([]store.Op, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, store.UpdateOp(store.CollectionNotifications, id, store.Document{models.FieldRead: true}))
	}
	return commitChunked(ctx, r.store, ops)
}

// DismissNotifications hides the given notifications from listings in chunked batches.
// The documents stay; only the fan-out triggers remove notifications.
func (r *DocumentNotificationRepository) DismissNotifications(ctx context.Context, ids []string) (int, error) {
	ops := make([]store.Op, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, store.UpdateOp(store.CollectionNotifications, id, store.Document{models.FieldDismissed: true}))
	}
	return commitChunked(ctx, r.store, ops)
}
