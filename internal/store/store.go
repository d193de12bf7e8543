package store

import (
	"context"
	"errors"
	"fmt"
)

// Collection names shared by every adapter
const (
	CollectionUsers         = "users"
	CollectionPosts         = "posts"
	CollectionComments      = "comments"
	CollectionLikes         = "likes"
	CollectionNotifications = "notifications"
)

// DefaultMaxBatchSize mirrors the Firestore limit of 500 writes per batch.
const DefaultMaxBatchSize = 500

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrUnavailable   = errors.New("store unavailable")
	ErrBatchTooLarge = errors.New("batch exceeds maximum operation count")
)

// Document is a schemaless document body
type Document map[string]interface{}

// Clone returns a shallow copy of the document. Nested maps and slices are copied one level deep.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		switch t := v.(type) {
		case map[string]interface{}:
			m := make(map[string]interface{}, len(t))
			for mk, mv := range t {
				m[mk] = mv
			}
			out[k] = m
		case []interface{}:
			out[k] = append([]interface{}(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}

// String returns the field as a string, or "" when absent or not a string.
func (d Document) String(field string) string {
	if d == nil {
		return ""
	}
	s, _ := d[field].(string)
	return s
}

// Int returns the field as int64. Numeric types produced by the different drivers
// (and by JSON decoding) are all accepted.
func (d Document) Int(field string) int64 {
	if d == nil {
		return 0
	}
	switch v := d[field].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	}
	return 0
}

// Bool returns the field as a bool.
func (d Document) Bool(field string) bool {
	if d == nil {
		return false
	}
	b, _ := d[field].(bool)
	return b
}

// Snapshot is a document read at a point in time
type Snapshot struct {
	ID   string
	Data Document
}

// Direction orders query results
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter is a single equality condition
type Filter struct {
	Field string
	Value interface{}
}

// Query selects documents of one collection. Filters are ANDed.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Direction  Direction
	// After, when set together with OrderBy, keeps only documents whose OrderBy value
	// lies strictly after it in Direction. Ties on OrderBy are broken by document ID in
	// the same direction; AfterID resumes inside such a tie.
	After   interface{}
	AfterID string
	Limit   int
}

// Where builds a query with a single equality filter.
func Where(collection, field string, value interface{}) Query {
	return Query{Collection: collection, Filters: []Filter{{Field: field, Value: value}}}
}

// And adds another equality filter.
func (q Query) And(field string, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

// Order sets the ordering field and direction.
func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = field
	q.Direction = dir
	return q
}

// StartAfter sets the pagination cursor: the OrderBy value and ID of the last document of
// the previous page. An empty id skips every document carrying value.
func (q Query) StartAfter(value interface{}, id string) Query {
	q.After = value
	q.AfterID = id
	return q
}

// Take limits the number of results.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// OpKind is the kind of a batched write
type OpKind int

const (
	OpSet OpKind = iota
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Op is one write inside an atomic batch
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       Document
}

// DeleteOp builds a delete operation.
func DeleteOp(collection, id string) Op {
	return Op{Kind: OpDelete, Collection: collection, ID: id}
}

// UpdateOp builds a field-merge operation.
func UpdateOp(collection, id string, fields Document) Op {
	return Op{Kind: OpUpdate, Collection: collection, ID: id, Data: fields}
}

// SetOp builds a full-overwrite operation.
func SetOp(collection, id string, data Document) Op {
	return Op{Kind: OpSet, Collection: collection, ID: id, Data: data}
}

// Store is the document store consumed by the consistency logic
type Store interface {
	Get(ctx context.Context, collection, id string) (*Snapshot, error)
	Query(ctx context.Context, q Query) ([]Snapshot, error)
	Create(ctx context.Context, collection, id string, data Document) error
	Set(ctx context.Context, collection, id string, data Document) error
	Update(ctx context.Context, collection, id string, fields Document) error
	Delete(ctx context.Context, collection, id string) error
	// Increment atomically adds delta to a numeric field and returns the new value.
	Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error)
	// Commit applies all operations atomically. len(ops) must not exceed MaxBatchSize.
	Commit(ctx context.Context, ops []Op) error
	MaxBatchSize() int
}

// ChunkError reports a failed chunk of a chunked commit. Chunks before Index are committed.
type ChunkError struct {
	Index     int
	Total     int
	Committed int
	Err       error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("batch chunk %d/%d failed after %d committed operations: %v", e.Index+1, e.Total, e.Committed, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// CommitChunked splits ops into chunks of at most s.MaxBatchSize() and commits them in order.
// Each chunk is atomic; the whole sequence is not.
func CommitChunked(ctx context.Context, s Store, ops []Op) (int, error) {
	size := s.MaxBatchSize()
	if size <= 0 {
		size = DefaultMaxBatchSize
	}
	total := (len(ops) + size - 1) / size
	committed := 0
	for i := 0; i < total; i++ {
		end := (i + 1) * size
		if end > len(ops) {
			end = len(ops)
		}
		chunk := ops[i*size : end]
		if err := s.Commit(ctx, chunk); err != nil {
			return committed, &ChunkError{Index: i, Total: total, Committed: committed, Err: err}
		}
		committed += len(chunk)
	}
	return committed, nil
}
