package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/Em-Deesha/profverify/internal/domain"
	"github.com/Em-Deesha/profverify/internal/ports"
)

// Memory is an in-process document and history store. Documents keep
// insertion order within a collection.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]domain.Document
	history     []domain.HistoryEntry
}

var (
	_ ports.DocumentStore = (*Memory)(nil)
	_ ports.HistoryStore  = (*Memory)(nil)
)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]domain.Document)}
}

// PutDocument inserts doc or replaces the document with the same ID.
func (m *Memory) PutDocument(_ context.Context, collection string, doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc.Fields = maps.Clone(doc.Fields)
	docs := m.collections[collection]
	if i := slices.IndexFunc(docs, func(d domain.Document) bool { return d.ID == doc.ID }); i >= 0 {
		docs[i] = doc
		return nil
	}
	m.collections[collection] = append(docs, doc)
	return nil
}

// Query matches filters by exact string equality.
func (m *Memory) Query(ctx context.Context, collection string, filters []ports.Filter, limit int) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, ports.NewStoreError(collection, "Query", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Document
	for _, doc := range m.collections[collection] {
		if len(out) >= limit {
			break
		}
		if matchesAll(doc, filters) {
			out = append(out, copyDocument(doc))
		}
	}
	return out, nil
}

// Scan returns the first limit documents in insertion order.
func (m *Memory) Scan(ctx context.Context, collection string, limit int) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, ports.NewStoreError(collection, "Scan", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.collections[collection]
	if len(docs) > limit {
		docs = docs[:limit]
	}
	out := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, copyDocument(d))
	}
	return out, nil
}

// Record appends a history entry.
func (m *Memory) Record(_ context.Context, entry domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, entry)
	return nil
}

// Recent returns the newest entries first.
func (m *Memory) Recent(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := slices.Clone(m.history)
	slices.SortStableFunc(out, func(a, b domain.HistoryEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesAll(doc domain.Document, filters []ports.Filter) bool {
	for _, f := range filters {
		v, ok := doc.Fields[f.Field].(string)
		if !ok || v != f.Value {
			return false
		}
	}
	return true
}

func copyDocument(d domain.Document) domain.Document {
	return domain.Document{ID: d.ID, Fields: maps.Clone(d.Fields)}
}
