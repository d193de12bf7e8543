package services

import (
	"context"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/repositories"
)

// Page sizes for notification listings; out-of-range requests fall back to the default.
const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 100
)

// NotificationService is the read side of notifications. Notifications are written only by
// the fan-out reactions; users can just read, mark and dismiss their own.
type NotificationService struct {
	notifications repositories.NotificationRepository
}

func NewNotificationService(notifications repositories.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// ListForRecipient pages through recipient's notifications, newest first. before is the
// cursor returned with the previous page.
func (s *NotificationService) ListForRecipient(ctx context.Context, recipient string, limit int, before string) ([]models.Notification, error) {
	if limit <= 0 || limit > MaxNotificationLimit {
		limit = DefaultNotificationLimit
	}
	return s.notifications.GetByRecipient(ctx, recipient, limit, before)
}

// MarkRead flags the given notifications of recipient as read.
func (s *NotificationService) MarkRead(ctx context.Context, recipient string, ids []string) (int, error) {
	if err := s.authorize(ctx, recipient, ids); err != nil {
		return 0, err
	}
	return s.notifications.MarkAsRead(ctx, ids)
}

// Dismiss hides the given notifications of recipient from listings. The notifications
// themselves live as long as the like or post behind them.
func (s *NotificationService) Dismiss(ctx context.Context, recipient string, ids []string) (int, error) {
	if err := s.authorize(ctx, recipient, ids); err != nil {
		return 0, err
	}
	return s.notifications.DismissNotifications(ctx, ids)
}

func (s *NotificationService) authorize(ctx context.Context, recipient string, ids []string) error {
	if len(ids) == 0 {
		return models.NewValidationError("no notification ids given")
	}
	for _, id := range ids {
		n, err := s.notifications.GetNotificationByID(ctx, id)
		if err != nil {
			return err
		}
		if n.Recipient != recipient {
			return models.NewForbiddenError("notification " + id + " belongs to another user")
		}
	}
	return nil
}
