package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_QueryFiltersOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	require.NoError(t, s.Create(ctx, "notifications", "n1", Document{"recipient": "alice", "createdAt": "2024-01-01T00:00:00Z"}))
	require.NoError(t, s.Create(ctx, "notifications", "n2", Document{"recipient": "alice", "createdAt": "2024-01-03T00:00:00Z"}))
	require.NoError(t, s.Create(ctx, "notifications", "n3", Document{"recipient": "bob", "createdAt": "2024-01-02T00:00:00Z"}))
	require.NoError(t, s.Create(ctx, "notifications", "n4", Document{"recipient": "alice", "createdAt": "2024-01-02T00:00:00Z"}))

	got, err := s.Query(ctx, Where("notifications", "recipient", "alice").Order("createdAt", Desc).Take(2))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "n2", got[0].ID)
	assert.Equal(t, "n4", got[1].ID)

	got, err = s.Query(ctx, Where("notifications", "recipient", "alice").And("createdAt", "2024-01-01T00:00:00Z"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "n1", got[0].ID)

	got, err = s.Query(ctx, Where("notifications", "recipient", "alice").Order("createdAt", Desc).StartAfter("2024-01-03T00:00:00Z", ""))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "n4", got[0].ID)
	assert.Equal(t, "n1", got[1].ID)

	got, err = s.Query(ctx, Query{Collection: "notifications"}.Order("createdAt", Asc).StartAfter("2024-01-02T00:00:00Z", ""))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "n2", got[0].ID)
}

func TestMemoryStore_CursorResumesInsideTies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Create(ctx, "notifications", id, Document{"createdAt": "2024-01-01T00:00:00.000Z"}))
	}
	require.NoError(t, s.Create(ctx, "notifications", "e", Document{"createdAt": "2023-12-31T00:00:00.000Z"}))

	q := Query{Collection: "notifications"}.Order("createdAt", Desc).Take(2)
	got, err := s.Query(ctx, q)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"d", "c"}, []string{got[0].ID, got[1].ID})

	got, err = s.Query(ctx, q.StartAfter("2024-01-01T00:00:00.000Z", "c"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"b", "a"}, []string{got[0].ID, got[1].ID})

	got, err = s.Query(ctx, q.StartAfter("2024-01-01T00:00:00.000Z", "a"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e", got[0].ID)
}

func TestMemoryStore_CreateRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	require.NoError(t, s.Create(ctx, "likes", "l1", Document{"postId": "p1"}))
	err := s.Create(ctx, "likes", "l1", Document{"postId": "p1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemoryStore_SnapshotsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	require.NoError(t, s.Create(ctx, "posts", "p1", Document{"body": "hello"}))

	snap, err := s.Get(ctx, "posts", "p1")
	require.NoError(t, err)
	snap.Data["body"] = "mutated"

	again, err := s.Get(ctx, "posts", "p1")
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Data.String("body"))
}

func TestMemoryStore_UpdateAndIncrementMissingDocument(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	assert.ErrorIs(t, s.Update(ctx, "posts", "missing", Document{"body": "x"}), ErrNotFound)
	_, err := s.Increment(ctx, "posts", "missing", "likeCount", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, "posts", "missing"))
}

func TestMemoryStore_ConcurrentIncrementsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	require.NoError(t, s.Create(ctx, "posts", "p1", Document{"likeCount": int64(0)}))

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Increment(ctx, "posts", "p1", "likeCount", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := s.Get(ctx, "posts", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), snap.Data.Int("likeCount"))
}

func TestMemoryStore_CommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	require.NoError(t, s.Create(ctx, "comments", "c1", Document{"postId": "p1"}))

	err := s.Commit(ctx, []Op{
		DeleteOp("comments", "c1"),
		UpdateOp("posts", "missing", Document{"authorImageUrl": "x"}),
	})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, s.Count("comments"))
}

func TestMemoryStore_CommitRejectsOversizedBatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	err := s.Commit(ctx, []Op{DeleteOp("a", "1"), DeleteOp("a", "2"), DeleteOp("a", "3")})
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestCommitChunked_SplitsByMaxBatchSize(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)
	var ops []Op
	for i := 0; i < 7; i++ {
		id := fmt.Sprintf("l%d", i)
		require.NoError(t, s.Create(ctx, "likes", id, Document{"postId": "p1"}))
		ops = append(ops, DeleteOp("likes", id))
	}

	var commits int
	s.SetFault(func(op, _ string) error {
		if op == "commit" {
			commits++
		}
		return nil
	})

	n, err := CommitChunked(ctx, s, ops)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 0, s.Count("likes"))
	// the fault hook runs once per op in a chunk
	assert.Equal(t, 7, commits)
}

func TestCommitChunked_ReportsFailedChunkWithoutRollback(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	var ops []Op
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("c%d", i)
		require.NoError(t, s.Create(ctx, "comments", id, Document{"postId": "p1"}))
		ops = append(ops, DeleteOp("comments", id))
	}

	var chunk int
	var mu sync.Mutex
	s.SetFault(func(op, _ string) error {
		mu.Lock()
		defer mu.Unlock()
		if op != "commit" {
			return nil
		}
		chunk++
		// ops 3 and 4 form the second chunk
		if chunk == 3 {
			return ErrUnavailable
		}
		return nil
	})

	n, err := CommitChunked(ctx, s, ops)
	require.Error(t, err)
	assert.Equal(t, 2, n)

	var chunkErr *ChunkError
	require.True(t, errors.As(err, &chunkErr))
	assert.Equal(t, 1, chunkErr.Index)
	assert.Equal(t, 3, chunkErr.Total)
	assert.Equal(t, 2, chunkErr.Committed)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, s.Count("comments"))
}

func TestDocument_IntAcceptsDriverNumericTypes(t *testing.T) {
	d := Document{"a": int32(3), "b": int64(4), "c": float64(5), "d": 6, "e": "7"}
	assert.Equal(t, int64(3), d.Int("a"))
	assert.Equal(t, int64(4), d.Int("b"))
	assert.Equal(t, int64(5), d.Int("c"))
	assert.Equal(t, int64(6), d.Int("d"))
	assert.Equal(t, int64(0), d.Int("e"))
	assert.Equal(t, int64(0), d.Int("missing"))
}
