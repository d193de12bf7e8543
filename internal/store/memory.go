package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// FaultFunc is consulted before every MemoryStore operation. A non-nil error aborts the operation.
type FaultFunc func(op string, collection string) error

// MemoryStore is an in-process Store used for development and tests
type MemoryStore struct {
	mu           sync.RWMutex
	collections  map[string]map[string]Document
	maxBatchSize int
	fault        FaultFunc
}

// NewMemoryStore creates an empty MemoryStore. maxBatchSize <= 0 selects DefaultMaxBatchSize.
func NewMemoryStore(maxBatchSize int) *MemoryStore {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &MemoryStore{
		collections:  make(map[string]map[string]Document),
		maxBatchSize: maxBatchSize,
	}
}

// SetFault installs a fault hook; nil removes it.
func (m *MemoryStore) SetFault(f FaultFunc) {
	m.mu.Lock()
	m.fault = f
	m.mu.Unlock()
}

func (m *MemoryStore) check(op, collection string) error {
	m.mu.RLock()
	f := m.fault
	m.mu.RUnlock()
	if f == nil {
		return nil
	}
	return f(op, collection)
}

func (m *MemoryStore) MaxBatchSize() int {
	return m.maxBatchSize
}

// Count returns the number of documents in a collection.
func (m *MemoryStore) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

func (m *MemoryStore) coll(name string) map[string]Document {
	c, ok := m.collections[name]
	if !ok {
		c = make(map[string]Document)
		m.collections[name] = c
	}
	return c
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	if err := m.check("get", collection); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return &Snapshot{ID: id, Data: doc.Clone()}, nil
}

func (m *MemoryStore) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	if err := m.check("query", q.Collection); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var out []Snapshot
	for id, doc := range m.collections[q.Collection] {
		if matches(doc, q.Filters) && pastCursor(id, doc, q) {
			out = append(out, Snapshot{ID: id, Data: doc.Clone()})
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if q.OrderBy == "" {
			return out[i].ID < out[j].ID
		}
		c := compare(out[i].Data[q.OrderBy], out[j].Data[q.OrderBy])
		if c == 0 {
			c = strings.Compare(out[i].ID, out[j].ID)
		}
		if q.Direction == Desc {
			return c > 0
		}
		return c < 0
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Create(ctx context.Context, collection, id string, data Document) error {
	if err := m.check("create", collection); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.coll(collection)
	if _, ok := c[id]; ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	c[id] = data.Clone()
	return nil
}

func (m *MemoryStore) Set(ctx context.Context, collection, id string, data Document) error {
	if err := m.check("set", collection); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coll(collection)[id] = data.Clone()
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, fields Document) error {
	if err := m.check("update", collection); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyUpdate(collection, id, fields)
}

func (m *MemoryStore) applyUpdate(collection, id string, fields Document) error {
	doc, ok := m.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	next := doc.Clone()
	for k, v := range fields {
		next[k] = v
	}
	m.collections[collection][id] = next
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := m.check("delete", collection); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections[collection], id)
	return nil
}

func (m *MemoryStore) Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	if err := m.check("increment", collection); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return 0, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	next := doc.Clone()
	value := next.Int(field) + delta
	next[field] = value
	m.collections[collection][id] = next
	return value, nil
}

// Commit validates every operation before applying any, so a failing batch leaves no trace.
func (m *MemoryStore) Commit(ctx context.Context, ops []Op) error {
	if len(ops) > m.maxBatchSize {
		return fmt.Errorf("%d operations: %w", len(ops), ErrBatchTooLarge)
	}
	for _, op := range ops {
		if err := m.check("commit", op.Collection); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		if op.Kind == OpUpdate {
			if _, ok := m.collections[op.Collection][op.ID]; !ok {
				return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, ErrNotFound)
			}
		}
	}
	for _, op := range ops {
		switch op.Kind {
		case OpSet:
			m.coll(op.Collection)[op.ID] = op.Data.Clone()
		case OpUpdate:
			_ = m.applyUpdate(op.Collection, op.ID, op.Data)
		case OpDelete:
			delete(m.collections[op.Collection], op.ID)
		}
	}
	return nil
}

func pastCursor(id string, doc Document, q Query) bool {
	if q.OrderBy == "" || q.After == nil {
		return true
	}
	c := compare(doc[q.OrderBy], q.After)
	if c == 0 && q.AfterID != "" {
		c = strings.Compare(id, q.AfterID)
	}
	if q.Direction == Desc {
		return c < 0
	}
	return c > 0
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		v, ok := doc[f.Field]
		if !ok || compare(v, f.Value) != 0 {
			return false
		}
	}
	return true
}

// compare orders the scalar types stored by this package. Mismatched types compare by type name.
func compare(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	if an, aok := number(a); aok {
		if bn, bok := number(b); bok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			}
			return 0
		}
	}
	if a == nil && b == nil {
		return 0
	}
	ta, tb := fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)
	switch {
	case ta < tb:
		return -1
	case ta > tb:
		return 1
	}
	return 0
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
