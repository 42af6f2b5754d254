package vectorstore

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
)

// Memory is an in-memory store with the same semantics as SQLite.
type Memory struct {
	collections map[string]map[string]*memEntry
	seq         int64
	mu          sync.RWMutex
}

type memEntry struct {
	seq   int64
	entry Entry
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{collections: make(map[string]map[string]*memEntry)}
	for _, c := range Collections() {
		m.collections[c] = make(map[string]*memEntry)
	}
	return m
}

// Exists reports whether id is stored in collection.
func (m *Memory) Exists(ctx context.Context, collection, id string) (bool, error) {
	if err := checkCollection(collection); err != nil {
		return false, wrapError("exists", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[collection][id]
	return ok, nil
}

// ExistsWhere reports whether an entry's metadata field equals value.
func (m *Memory) ExistsWhere(ctx context.Context, collection, field, value string) (bool, error) {
	if err := checkCollection(collection); err != nil {
		return false, wrapError("exists_where", err)
	}
	if field == "" {
		return false, wrapError("exists_where", fmt.Errorf("%w: %q", ErrBadField, field))
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.collections[collection] {
		if v, ok := e.entry.Metadata[field]; ok && v == value {
			return true, nil
		}
	}
	return false, nil
}

// Upsert applies all writes or none of them.
func (m *Memory) Upsert(ctx context.Context, writes ...Write) error {
	dims := make([]int, len(writes))
	for i, w := range writes {
		dim, err := validateWrite(w)
		if err != nil {
			return wrapError("upsert", err)
		}
		dims[i] = dim
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, w := range writes {
		replaced := make(map[string]bool, len(w.Entries))
		for _, e := range w.Entries {
			replaced[e.ID] = true
		}
		for id, e := range m.collections[w.Collection] {
			if !replaced[id] && len(e.entry.Embedding) != dims[i] && len(w.Entries) > 0 {
				return wrapError("upsert", fmt.Errorf("%w: collection %s holds %s with a different dimension than %d",
					ErrDimMismatch, w.Collection, id, dims[i]))
			}
		}
	}

	for _, w := range writes {
		coll := m.collections[w.Collection]
		for _, e := range w.Entries {
			stored := Entry{
				ID:        e.ID,
				Embedding: append([]float32(nil), e.Embedding...),
				Metadata:  copyMetadata(e.Metadata),
				Document:  e.Document,
			}
			if existing, ok := coll[e.ID]; ok {
				existing.entry = stored
				continue
			}
			m.seq++
			coll[e.ID] = &memEntry{seq: m.seq, entry: stored}
		}
	}
	return nil
}

// Query ranks every entry of collection by cosine distance.
func (m *Memory) Query(ctx context.Context, collection string, vector []float32, topK int) ([]Match, error) {
	if err := checkCollection(collection); err != nil {
		return nil, wrapError("query", err)
	}
	if len(vector) == 0 {
		return nil, wrapError("query", ErrEmptyVector)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*memEntry, 0, len(m.collections[collection]))
	for _, e := range m.collections[collection] {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	rows := make([]stored, 0, len(entries))
	for _, e := range entries {
		if len(e.entry.Embedding) != len(vector) {
			return nil, wrapError("query", fmt.Errorf("%w: query has %d, %s has %d",
				ErrDimMismatch, len(vector), e.entry.ID, len(e.entry.Embedding)))
		}
		rows = append(rows, stored{
			id:       e.entry.ID,
			vector:   e.entry.Embedding,
			metadata: copyMetadata(e.entry.Metadata),
			document: e.entry.Document,
		})
	}
	return rank(rows, vector, topK), nil
}

// Count returns how many entries collection holds.
func (m *Memory) Count(ctx context.Context, collection string) (int, error) {
	if err := checkCollection(collection); err != nil {
		return 0, wrapError("count", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection]), nil
}

// Close is a no-op for memory storage.
func (m *Memory) Close() error {
	return nil
}

func copyMetadata(md map[string]string) map[string]string {
	return maps.Clone(md)
}
