package triggers

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/socialape/internal/events"
	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/repositories"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
)

// Fanout creates and retracts notifications. A notification is stored under the ID of the
// like or comment that caused it, so replays overwrite instead of duplicating.
type Fanout struct {
	posts         repositories.PostRepository
	likes         repositories.LikeRepository
	comments      repositories.CommentRepository
	notifications repositories.NotificationRepository
	log           *logger.Logger
}

func NewFanout(
	posts repositories.PostRepository,
	likes repositories.LikeRepository,
	comments repositories.CommentRepository,
	notifications repositories.NotificationRepository,
	log *logger.Logger,
) *Fanout {
	return &Fanout{posts: posts, likes: likes, comments: comments, notifications: notifications, log: log}
}

func (f *Fanout) OnLikeCreated(ctx context.Context, ev events.Event) error {
	like, err := f.likes.GetLikeByID(ctx, ev.ID)
	if models.IsNotFound(err) {
		f.log.Debug("like gone before notification", "like", ev.ID)
		return nil
	}
	if err != nil {
		return err
	}
	return f.notify(ctx, like.ID, like.PostID, like.AuthorHandle, models.NotificationLike, like.CreatedAt)
}

func (f *Fanout) OnCommentCreated(ctx context.Context, ev events.Event) error {
	comment, err := f.comments.GetCommentByID(ctx, ev.ID)
	if models.IsNotFound(err) {
		f.log.Debug("comment gone before notification", "comment", ev.ID)
		return nil
	}
	if err != nil {
		return err
	}
	return f.notify(ctx, comment.ID, comment.PostID, comment.AuthorHandle, models.NotificationComment, comment.CreatedAt)
}

// OnLikeDeleted retracts the like's notification. A missing notification is fine: it was
// never created for a self-like, or the cascade got there first.
func (f *Fanout) OnLikeDeleted(ctx context.Context, ev events.Event) error {
	return f.notifications.DeleteNotification(ctx, ev.ID)
}

func (f *Fanout) notify(ctx context.Context, triggerID, postID, sender, kind, createdAt string) error {
	post, err := f.posts.GetPostByID(ctx, postID)
	if models.IsNotFound(err) {
		f.log.Info("skipping notification for deleted post", "post", postID, "trigger", triggerID)
		return nil
	}
	if err != nil {
		return err
	}
	if post.AuthorHandle == sender {
		return nil
	}

	// A redelivered event finds its notification already written; leave the read and
	// dismissed flags the user has set since.
	_, err = f.notifications.GetNotificationByID(ctx, triggerID)
	if err == nil {
		return nil
	}
	if !models.IsNotFound(err) {
		return err
	}

	if createdAt == "" {
		createdAt = models.Timestamp(time.Now())
	}
	err = f.notifications.SaveNotification(ctx, &models.Notification{
		ID:        triggerID,
		Recipient: post.AuthorHandle,
		Sender:    sender,
		Type:      kind,
		PostID:    postID,
		CreatedAt: createdAt,
	})
	if err != nil {
		return err
	}

	// The post may have been deleted, and its cascade run, since it was read above.
	if _, err := f.posts.GetPostByID(ctx, postID); err != nil {
		if !models.IsNotFound(err) {
			return err
		}
		f.log.Info("post deleted while notifying", "post", postID, "trigger", triggerID)
		return f.notifications.DeleteNotification(ctx, triggerID)
	}
	return nil
}
