package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore
type FirestoreStore struct {
	client       *firestore.Client
	maxBatchSize int
}

// NewFirestoreStore wraps a Firestore client. maxBatchSize is capped at the Firestore limit.
func NewFirestoreStore(client *firestore.Client, maxBatchSize int) *FirestoreStore {
	if maxBatchSize <= 0 || maxBatchSize > DefaultMaxBatchSize {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &FirestoreStore{client: client, maxBatchSize: maxBatchSize}
}

func (s *FirestoreStore) MaxBatchSize() int {
	return s.maxBatchSize
}

func (s *FirestoreStore) doc(collection, id string) *firestore.DocumentRef {
	return s.client.Collection(collection).Doc(id)
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	snap, err := s.doc(collection, id).Get(ctx)
	if err != nil {
		return nil, firestoreError(collection, id, err)
	}
	return &Snapshot{ID: snap.Ref.ID, Data: Document(snap.Data())}, nil
}

func (s *FirestoreStore) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	query := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		query = query.Where(f.Field, "==", f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Direction == Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir).OrderBy(firestore.DocumentID, dir)
		switch {
		case q.After != nil && q.AfterID != "":
			query = query.StartAfter(q.After, q.AfterID)
		case q.After != nil:
			query = query.StartAfter(q.After)
		}
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, firestoreError(q.Collection, "", err)
	}
	out := make([]Snapshot, 0, len(docs))
	for _, d := range docs {
		out = append(out, Snapshot{ID: d.Ref.ID, Data: Document(d.Data())})
	}
	return out, nil
}

func (s *FirestoreStore) Create(ctx context.Context, collection, id string, data Document) error {
	_, err := s.doc(collection, id).Create(ctx, map[string]interface{}(data))
	return firestoreError(collection, id, err)
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, data Document) error {
	_, err := s.doc(collection, id).Set(ctx, map[string]interface{}(data))
	return firestoreError(collection, id, err)
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields Document) error {
	_, err := s.doc(collection, id).Update(ctx, toUpdates(fields))
	return firestoreError(collection, id, err)
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.doc(collection, id).Delete(ctx)
	return firestoreError(collection, id, err)
}

// Increment applies a server-side firestore.Increment and reads the resulting value back.
// The value returned may already include concurrent increments.
func (s *FirestoreStore) Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	ref := s.doc(collection, id)
	if _, err := ref.Update(ctx, []firestore.Update{{Path: field, Value: firestore.Increment(delta)}}); err != nil {
		return 0, firestoreError(collection, id, err)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return 0, firestoreError(collection, id, err)
	}
	return Document(snap.Data()).Int(field), nil
}

// Commit runs the operations inside a single Firestore transaction.
func (s *FirestoreStore) Commit(ctx context.Context, ops []Op) error {
	if len(ops) > s.maxBatchSize {
		return fmt.Errorf("%d operations: %w", len(ops), ErrBatchTooLarge)
	}
	if len(ops) == 0 {
		return nil
	}
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, op := range ops {
			ref := s.doc(op.Collection, op.ID)
			var err error
			switch op.Kind {
			case OpSet:
				err = tx.Set(ref, map[string]interface{}(op.Data))
			case OpUpdate:
				err = tx.Update(ref, toUpdates(op.Data))
			case OpDelete:
				err = tx.Delete(ref)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return firestoreError("batch", "", err)
}

func toUpdates(fields Document) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	return updates
}

func firestoreError(collection, id string, err error) error {
	if err == nil {
		return nil
	}
	ref := collection
	if id != "" {
		ref = collection + "/" + id
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w", ref, ErrAlreadyExists)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return fmt.Errorf("%s: %w: %v", ref, ErrUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", ref, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", ref, err)
}
