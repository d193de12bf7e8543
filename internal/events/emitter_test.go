package events

import (
	"context"
	"sync"
	"testing"

	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureBus struct {
	mu     sync.Mutex
	events []Event
}

func (b *captureBus) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *captureBus) take() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

func newEmitter() (*EmittingStore, *store.MemoryStore, *captureBus) {
	mem := store.NewMemoryStore(store.DefaultMaxBatchSize)
	bus := &captureBus{}
	return NewEmittingStore(mem, bus, logger.NewNop()), mem, bus
}

func TestEmittingStore_LifecycleEvents(t *testing.T) {
	ctx := context.Background()
	s, _, bus := newEmitter()

	require.NoError(t, s.Create(ctx, store.CollectionPosts, "p1", store.Document{"body": "hi", "likeCount": 0}))
	evs := bus.take()
	require.Len(t, evs, 1)
	assert.Equal(t, Event{Kind: KindPost, Op: Created, ID: "p1", After: store.Document{"body": "hi", "likeCount": 0}}, evs[0])

	_, err := s.Increment(ctx, store.CollectionPosts, "p1", "likeCount", 1)
	require.NoError(t, err)
	evs = bus.take()
	require.Len(t, evs, 1)
	assert.Equal(t, Updated, evs[0].Op)
	assert.Equal(t, int64(0), evs[0].Before.Int("likeCount"))
	assert.Equal(t, int64(1), evs[0].After.Int("likeCount"))

	require.NoError(t, s.Update(ctx, store.CollectionPosts, "p1", store.Document{"body": "edited"}))
	evs = bus.take()
	require.Len(t, evs, 1)
	assert.Equal(t, "hi", evs[0].Before.String("body"))
	assert.Equal(t, "edited", evs[0].After.String("body"))

	require.NoError(t, s.Delete(ctx, store.CollectionPosts, "p1"))
	evs = bus.take()
	require.Len(t, evs, 1)
	assert.Equal(t, Deleted, evs[0].Op)
	assert.Nil(t, evs[0].After)
	assert.Equal(t, "edited", evs[0].Before.String("body"))
}

func TestEmittingStore_SkipsAbsentDeletesAndUnwatchedCollections(t *testing.T) {
	ctx := context.Background()
	s, mem, bus := newEmitter()

	require.NoError(t, s.Delete(ctx, store.CollectionLikes, "missing"))
	require.NoError(t, s.Set(ctx, store.CollectionNotifications, "n1", store.Document{"read": false}))
	require.NoError(t, s.Delete(ctx, store.CollectionNotifications, "n1"))

	assert.Empty(t, bus.take())
	assert.Equal(t, 0, mem.Count(store.CollectionNotifications))
}

func TestEmittingStore_FailedWriteEmitsNothing(t *testing.T) {
	ctx := context.Background()
	s, _, bus := newEmitter()

	require.NoError(t, s.Create(ctx, store.CollectionLikes, "l1", store.Document{"postId": "p1"}))
	bus.take()

	err := s.Create(ctx, store.CollectionLikes, "l1", store.Document{"postId": "p1"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	err = s.Update(ctx, store.CollectionPosts, "nope", store.Document{"body": "x"})
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, bus.take())
}

func TestEmittingStore_CommitEmitsPerOperation(t *testing.T) {
	ctx := context.Background()
	s, _, bus := newEmitter()
	require.NoError(t, s.Create(ctx, store.CollectionComments, "c1", store.Document{"postId": "p1"}))
	require.NoError(t, s.Create(ctx, store.CollectionLikes, "l1", store.Document{"postId": "p1"}))
	bus.take()

	err := s.Commit(ctx, []store.Op{
		store.DeleteOp(store.CollectionComments, "c1"),
		store.DeleteOp(store.CollectionLikes, "l1"),
		store.DeleteOp(store.CollectionLikes, "gone"),
		store.DeleteOp(store.CollectionNotifications, "n1"),
	})
	require.NoError(t, err)

	evs := bus.take()
	require.Len(t, evs, 2)
	assert.Equal(t, "comment:c1", evs[0].Key())
	assert.Equal(t, "like:l1", evs[1].Key())
	for _, ev := range evs {
		assert.Equal(t, Deleted, ev.Op)
	}
}

func TestEmittingStore_FailedPreReadAbortsWrite(t *testing.T) {
	ctx := context.Background()
	s, mem, bus := newEmitter()
	require.NoError(t, s.Create(ctx, store.CollectionPosts, "p1", store.Document{"body": "hi"}))
	require.NoError(t, s.Create(ctx, store.CollectionLikes, "l1", store.Document{"postId": "p1"}))
	bus.take()

	mem.SetFault(func(op, _ string) error {
		if op == "get" {
			return store.ErrUnavailable
		}
		return nil
	})
	require.ErrorIs(t, s.Delete(ctx, store.CollectionPosts, "p1"), store.ErrUnavailable)
	err := s.Commit(ctx, []store.Op{store.DeleteOp(store.CollectionLikes, "l1")})
	require.ErrorIs(t, err, store.ErrUnavailable)
	_, err = s.Increment(ctx, store.CollectionPosts, "p1", "likeCount", 1)
	require.ErrorIs(t, err, store.ErrUnavailable)
	assert.Equal(t, 1, mem.Count(store.CollectionPosts))
	assert.Equal(t, 1, mem.Count(store.CollectionLikes))
	assert.Empty(t, bus.take())

	// Once the store recovers the retried delete goes through and is announced.
	mem.SetFault(nil)
	require.NoError(t, s.Delete(ctx, store.CollectionPosts, "p1"))
	evs := bus.take()
	require.Len(t, evs, 1)
	assert.Equal(t, "post:p1", evs[0].Key())
	assert.Equal(t, Deleted, evs[0].Op)
}
