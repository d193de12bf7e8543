package triggers

import (
	"context"

	"github.com/anonto42/nano-midea/socialape/internal/events"
	"github.com/anonto42/nano-midea/socialape/internal/repositories"
	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Cascade removes the comments, likes and notifications of a deleted post
type Cascade struct {
	store         store.Store
	comments      repositories.CommentRepository
	likes         repositories.LikeRepository
	notifications repositories.NotificationRepository
	log           *logger.Logger
}

func NewCascade(
	s store.Store,
	comments repositories.CommentRepository,
	likes repositories.LikeRepository,
	notifications repositories.NotificationRepository,
	log *logger.Logger,
) *Cascade {
	return &Cascade{store: s, comments: comments, likes: likes, notifications: notifications, log: log}
}

// OnPostDeleted deletes every dependent of the post in chunked batches. Deletes are
// idempotent, so a redelivered event only repeats work. Chunks committed before a failed
// one stay committed.
func (c *Cascade) OnPostDeleted(ctx context.Context, ev events.Event) error {
	postID := ev.ID
	var commentIDs, likeIDs, notificationIDs []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		commentIDs, err = c.comments.GetCommentIDsByPostID(gctx, postID)
		return err
	})
	g.Go(func() (err error) {
		likeIDs, err = c.likes.GetLikeIDsByPostID(gctx, postID)
		return err
	})
	g.Go(func() (err error) {
		notificationIDs, err = c.notifications.GetNotificationIDsByPostID(gctx, postID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	ops := make([]store.Op, 0, len(commentIDs)+len(likeIDs)+len(notificationIDs))
	for _, id := range commentIDs {
		ops = append(ops, store.DeleteOp(store.CollectionComments, id))
	}
	for _, id := range likeIDs {
		ops = append(ops, store.DeleteOp(store.CollectionLikes, id))
	}
	for _, id := range notificationIDs {
		ops = append(ops, store.DeleteOp(store.CollectionNotifications, id))
	}
	if len(ops) == 0 {
		return nil
	}

	committed, err := repositories.CommitChunked(ctx, c.store, ops)
	if err != nil {
		c.log.Error("cascade delete stopped on a failed chunk",
			"post", postID, "committed", committed, "total", len(ops), "error", err)
		return err
	}
	c.log.Info("cascade delete finished",
		"post", postID, "comments", len(commentIDs), "likes", len(likeIDs), "notifications", len(notificationIDs))
	return nil
}
