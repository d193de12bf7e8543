package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []string
}

func (s *recordingSink) Record(_ context.Context, handler string, ev Event, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, fmt.Sprintf("%s|%s|%v", handler, ev.String(), cause))
	return nil
}

func (s *recordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDispatcher_RoutesByKindAndOperation(t *testing.T) {
	d := NewDispatcher(logger.NewNop())
	var likeCreated, likeDeleted int32
	d.Subscribe(KindLike, Created, "a", func(context.Context, Event) error {
		atomic.AddInt32(&likeCreated, 1)
		return nil
	})
	d.Subscribe(KindLike, Deleted, "b", func(context.Context, Event) error {
		atomic.AddInt32(&likeDeleted, 1)
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), Event{Kind: KindLike, Op: Created, ID: "l1"}))
	require.NoError(t, d.Dispatch(context.Background(), Event{Kind: KindComment, Op: Created, ID: "c1"}))

	assert.Equal(t, int32(1), atomic.LoadInt32(&likeCreated))
	assert.Equal(t, int32(0), atomic.LoadInt32(&likeDeleted))
	assert.Equal(t, []string{"a"}, d.Handlers(KindLike, Created))
}

func TestDispatcher_HandlerFailureDoesNotBlockOthers(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(logger.NewNop(), WithDeadLetterSink(sink), WithRetryPolicy(fastPolicy(3)))
	var ran int32
	d.Subscribe(KindPost, Deleted, "broken", func(context.Context, Event) error {
		return errors.New("boom")
	})
	d.Subscribe(KindPost, Deleted, "panics", func(context.Context, Event) error {
		panic("bad handler")
	})
	d.Subscribe(KindPost, Deleted, "healthy", func(context.Context, Event) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	err := d.Dispatch(context.Background(), Event{Kind: KindPost, Op: Deleted, ID: "p1"})
	require.NoError(t, err, "permanent failures are dead-lettered, not returned")
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
	assert.Equal(t, 2, sink.Len())
}

func TestDispatcher_RetriesTransientFailures(t *testing.T) {
	d := NewDispatcher(logger.NewNop(), WithRetryPolicy(fastPolicy(3)))
	var calls int32
	d.Subscribe(KindLike, Created, "flaky", func(context.Context, Event) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return fmt.Errorf("query: %w", store.ErrUnavailable)
		}
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), Event{Kind: KindLike, Op: Created, ID: "l1"}))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDispatcher_ReturnsExhaustedTransientFailures(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(logger.NewNop(), WithDeadLetterSink(sink), WithRetryPolicy(fastPolicy(2)))
	var calls int32
	d.Subscribe(KindLike, Created, "down", func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return store.ErrUnavailable
	})

	err := d.Dispatch(context.Background(), Event{Kind: KindLike, Op: Created, ID: "l1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, sink.Len(), "transient failures are left to redelivery")
}

func TestDispatcher_RunsHandlersConcurrently(t *testing.T) {
	d := NewDispatcher(logger.NewNop())
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)
	for _, name := range []string{"first", "second"} {
		d.Subscribe(KindUser, Updated, name, func(context.Context, Event) error {
			started.Done()
			<-release
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- d.Dispatch(context.Background(), Event{Kind: KindUser, Op: Updated, ID: "alice"}) }()

	started.Wait()
	close(release)
	require.NoError(t, <-done)
}
