package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Em-Deesha/profverify/internal/domain"
)

// Test that our interfaces can be implemented correctly

// mockLLMClient implements LLMClient interface
type mockLLMClient struct{ model string }

func (m *mockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	return `{"verified":true}`, nil
}

func (m *mockLLMClient) GetModel() string { return m.model }

// mockDocumentStore implements DocumentStore over a map of collections.
type mockDocumentStore struct{ collections map[string][]domain.Document }

func (m *mockDocumentStore) Query(ctx context.Context, collection string, filters []Filter, limit int) ([]domain.Document, error) {
	var out []domain.Document
	for _, doc := range m.collections[collection] {
		match := true
		for _, f := range filters {
			if domain.StringValue(doc.Fields[f.Field]) != f.Value {
				match = false
				break
			}
		}
		if match && len(out) < limit {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *mockDocumentStore) Scan(ctx context.Context, collection string, limit int) ([]domain.Document, error) {
	docs := m.collections[collection]
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// mockResultCache implements ResultCache interface
type mockResultCache struct{ data map[string]domain.VerificationResult }

func (m *mockResultCache) Get(ctx context.Context, key string) (domain.VerificationResult, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockResultCache) Set(ctx context.Context, key string, result domain.VerificationResult, expiration time.Duration) error {
	m.data[key] = result
	return nil
}

func (m *mockResultCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// mockMetricsCollector implements MetricsCollector interface
type mockMetricsCollector struct{ counters map[string]float64 }

func (m *mockMetricsCollector) RecordLatency(string, time.Duration, map[string]string) {}

func (m *mockMetricsCollector) RecordCounter(metric string, value float64, _ map[string]string) {
	m.counters[metric] += value
}

func (m *mockMetricsCollector) RecordGauge(string, float64, map[string]string)     {}
func (m *mockMetricsCollector) RecordHistogram(string, float64, map[string]string) {}

var (
	_ LLMClient        = (*mockLLMClient)(nil)
	_ DocumentStore    = (*mockDocumentStore)(nil)
	_ ResultCache      = (*mockResultCache)(nil)
	_ MetricsCollector = (*mockMetricsCollector)(nil)
)

// TestDocumentStoreContract exercises equality filtering and scan limits
// through the DocumentStore interface.
func TestDocumentStoreContract(t *testing.T) {
	var store DocumentStore = &mockDocumentStore{collections: map[string][]domain.Document{
		"professors": {
			{ID: "1", Fields: map[string]any{"name": "Jane Doe", "university": "State"}},
			{ID: "2", Fields: map[string]any{"name": "John Roe", "university": "State"}},
		},
	}}
	ctx := context.Background()

	docs, err := store.Query(ctx, "professors", []Filter{{Field: "name", Value: "Jane Doe"}}, 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "1", docs[0].ID)

	docs, err = store.Scan(ctx, "professors", 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = store.Query(ctx, "missing", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

// TestResultCacheContract exercises a get/set/delete round through ResultCache.
func TestResultCacheContract(t *testing.T) {
	var cache ResultCache = &mockResultCache{data: map[string]domain.VerificationResult{}}
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	want := domain.VerificationResult{Verified: true, ConfidenceScore: 80, EvidenceLinks: []string{}}
	require.NoError(t, cache.Set(ctx, "k", want, time.Minute))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, cache.Delete(ctx, "k"))
	_, ok, _ = cache.Get(ctx, "k")
	assert.False(t, ok)
}

// TestMetricsCollectorContract verifies counters accumulate through the interface.
func TestMetricsCollectorContract(t *testing.T) {
	m := &mockMetricsCollector{counters: map[string]float64{}}
	var collector MetricsCollector = m

	collector.RecordCounter("verifications_total", 1, map[string]string{"path": "heuristic"})
	collector.RecordCounter("verifications_total", 1, map[string]string{"path": "llm"})

	assert.Equal(t, 2.0, m.counters["verifications_total"])
}
