package triggers

import (
	"context"

	"github.com/anonto42/nano-midea/socialape/internal/events"
	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/repositories"
	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
)

// Profile copies a changed profile image onto the author's posts. Comments keep the image
// they were written with.
type Profile struct {
	store store.Store
	posts repositories.PostRepository
	log   *logger.Logger
}

func NewProfile(s store.Store, posts repositories.PostRepository, log *logger.Logger) *Profile {
	return &Profile{store: s, posts: posts, log: log}
}

// OnUserUpdated looks posts up by the handle of the before-state. A before-state without
// a handle matches nothing and is only logged.
func (p *Profile) OnUserUpdated(ctx context.Context, ev events.Event) error {
	oldURL := ev.Before.String(models.FieldImageURL)
	newURL := ev.After.String(models.FieldImageURL)
	if oldURL == newURL {
		return nil
	}
	handle := ev.Before.String(models.FieldHandle)
	if handle == "" {
		p.log.Warn("user update without a handle, image not propagated", "user", ev.ID)
		return nil
	}

	ids, err := p.posts.GetPostIDsByAuthor(ctx, handle)
	if err != nil {
		return err
	}
	ops := make([]store.Op, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, store.UpdateOp(store.CollectionPosts, id, store.Document{models.FieldAuthorImageURL: newURL}))
	}
	committed, err := repositories.CommitChunked(ctx, p.store, ops)
	if err != nil {
		p.log.Error("image propagation stopped on a failed chunk",
			"handle", handle, "committed", committed, "total", len(ops), "error", err)
		return err
	}
	p.log.Info("profile image propagated", "handle", handle, "posts", committed)
	return nil
}
