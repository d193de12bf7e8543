// Package triggers holds the reactions to document lifecycle events that keep denormalized
// data consistent. None of them raises an event that another reaction here consumes in a
// cycle.
package triggers

import "github.com/anonto42/nano-midea/socialape/internal/events"

// Handler names, used in logs, metrics and dead letters
const (
	HandlerCascade        = "cascade-post-delete"
	HandlerLikeCreated    = "fanout-like-created"
	HandlerCommentCreated = "fanout-comment-created"
	HandlerLikeDeleted    = "fanout-like-deleted"
	HandlerProfileImage   = "profile-image"
)

// Register subscribes every reaction. Comment deletion has no reaction: its notification
// stays until the post is deleted.
func Register(d *events.Dispatcher, cascade *Cascade, fanout *Fanout, profile *Profile) {
	d.Subscribe(events.KindPost, events.Deleted, HandlerCascade, cascade.OnPostDeleted)
	d.Subscribe(events.KindLike, events.Created, HandlerLikeCreated, fanout.OnLikeCreated)
	d.Subscribe(events.KindComment, events.Created, HandlerCommentCreated, fanout.OnCommentCreated)
	d.Subscribe(events.KindLike, events.Deleted, HandlerLikeDeleted, fanout.OnLikeDeleted)
	d.Subscribe(events.KindUser, events.Updated, HandlerProfileImage, profile.OnUserUpdated)
}
