package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
)

// EmittingStore publishes a lifecycle event after every committed write to a watched
// collection, standing in for the store's native document triggers.
// Before is read ahead of the write and After right after it; neither read is part of the
// write itself, so under concurrent writers they are best-effort snapshots.
type EmittingStore struct {
	store.Store
	bus Bus
	log *logger.Logger
}

func NewEmittingStore(inner store.Store, bus Bus, log *logger.Logger) *EmittingStore {
	return &EmittingStore{Store: inner, bus: bus, log: log}
}

func (s *EmittingStore) Create(ctx context.Context, collection, id string, data store.Document) error {
	if err := s.Store.Create(ctx, collection, id, data); err != nil {
		return err
	}
	s.emit(ctx, collection, id, nil, data.Clone())
	return nil
}

func (s *EmittingStore) Set(ctx context.Context, collection, id string, data store.Document) error {
	before, err := s.read(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := s.Store.Set(ctx, collection, id, data); err != nil {
		return err
	}
	s.emit(ctx, collection, id, before, data.Clone())
	return nil
}

func (s *EmittingStore) Update(ctx context.Context, collection, id string, fields store.Document) error {
	before, err := s.read(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := s.Store.Update(ctx, collection, id, fields); err != nil {
		return err
	}
	s.emit(ctx, collection, id, before, s.readAfter(ctx, collection, id, before, fields))
	return nil
}

func (s *EmittingStore) Delete(ctx context.Context, collection, id string) error {
	before, err := s.read(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, collection, id); err != nil {
		return err
	}
	if before != nil {
		s.emit(ctx, collection, id, before, nil)
	}
	return nil
}

func (s *EmittingStore) Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	before, err := s.read(ctx, collection, id)
	if err != nil {
		return 0, err
	}
	value, err := s.Store.Increment(ctx, collection, id, field, delta)
	if err != nil {
		return 0, err
	}
	s.emit(ctx, collection, id, before, s.readAfter(ctx, collection, id, before, store.Document{field: value}))
	return value, nil
}

func (s *EmittingStore) Commit(ctx context.Context, ops []store.Op) error {
	befores := make([]store.Document, len(ops))
	for i, op := range ops {
		before, err := s.read(ctx, op.Collection, op.ID)
		if err != nil {
			return err
		}
		befores[i] = before
	}
	if err := s.Store.Commit(ctx, ops); err != nil {
		return err
	}
	for i, op := range ops {
		switch op.Kind {
		case store.OpDelete:
			if befores[i] != nil {
				s.emit(ctx, op.Collection, op.ID, befores[i], nil)
			}
		case store.OpSet:
			s.emit(ctx, op.Collection, op.ID, befores[i], op.Data.Clone())
		case store.OpUpdate:
			s.emit(ctx, op.Collection, op.ID, befores[i], s.readAfter(ctx, op.Collection, op.ID, befores[i], op.Data))
		}
	}
	return nil
}

// read returns the current state of a watched document, nil when it does not exist.
// Any other failure aborts the write: without Before the event could be lost or misclassified.
func (s *EmittingStore) read(ctx context.Context, collection, id string) (store.Document, error) {
	if _, watched := KindForCollection(collection); !watched {
		return nil, nil
	}
	snap, err := s.Store.Get(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s before write: %w", collection, id, err)
	}
	return snap.Data, nil
}

// readAfter reads the post-write state, falling back to before merged with the written
// fields when the document has already gone again.
func (s *EmittingStore) readAfter(ctx context.Context, collection, id string, before, fields store.Document) store.Document {
	if after, err := s.read(ctx, collection, id); err == nil && after != nil {
		return after
	}
	merged := before.Clone()
	if merged == nil {
		merged = store.Document{}
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

func (s *EmittingStore) emit(ctx context.Context, collection, id string, before, after store.Document) {
	kind, watched := KindForCollection(collection)
	if !watched {
		return
	}
	op := Updated
	switch {
	case before == nil && after != nil:
		op = Created
	case after == nil:
		op = Deleted
	}
	ev := Event{Kind: kind, Op: op, ID: id, Before: before, After: after}
	// The write is already committed; a lost publish can only be logged.
	if err := s.bus.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Error("failed to publish lifecycle event", "event", ev.String(), "error", err)
	}
}
