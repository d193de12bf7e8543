package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/nano-midea/socialape/internal/metrics"
	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/store"
)

// CommitChunked commits ops in store-sized atomic chunks and records chunk outcomes.
// A failed chunk is reported as BATCH_CHUNK_FAILURE wrapping the *store.ChunkError;
// chunks committed before it stay committed.
func CommitChunked(ctx context.Context, s store.Store, ops []store.Op) (int, error) {
	return commitChunked(ctx, s, ops)
}

func commitChunked(ctx context.Context, s store.Store, ops []store.Op) (int, error) {
	if len(ops) == 0 {
		return 0, nil
	}
	committed, err := store.CommitChunked(ctx, s, ops)
	var chunkErr *store.ChunkError
	if errors.As(err, &chunkErr) {
		metrics.BatchChunks.WithLabelValues("ok").Add(float64(chunkErr.Index))
		metrics.BatchChunks.WithLabelValues("failed").Inc()
		return committed, models.NewBatchChunkFailure(chunkErr)
	}
	if err != nil {
		return committed, models.FromStore(err, "batch", "")
	}
	size := s.MaxBatchSize()
	if size <= 0 {
		size = store.DefaultMaxBatchSize
	}
	metrics.BatchChunks.WithLabelValues("ok").Add(float64((len(ops) + size - 1) / size))
	return committed, nil
}
