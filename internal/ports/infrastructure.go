package ports

import (
	"context"
	"time"

	"github.com/Em-Deesha/profverify/internal/domain"
)

// LLMClient defines the interface for interacting with Large Language
// Model providers.
// Implementations should handle provider-specific details like authentication,
// request formatting, and response parsing.
type LLMClient interface {
	// Complete sends a completion request to the LLM provider.
	// It returns the generated text and any error encountered.
	//
	// The options map allows flexibility for different providers without
	// changing the interface. Common options include:
	//   - "temperature": float64
	//   - "max_tokens": int
	//   - "model": string (specific model version)
	//   - "json_mode": bool (ask for a JSON-only reply where supported)
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// GetModel returns the model identifier being used by this client.
	// This is useful for logging and metric labels.
	GetModel() string
}

// Filter is a single field equality condition for a document query.
type Filter struct {
	Field string
	Value string
}

// DocumentStore is the read side of the profile database. Collections are
// addressed by slash separated paths such as
// "artifacts/<app>/public/data/professors".
type DocumentStore interface {
	// Query returns up to limit documents in collection whose fields equal
	// every filter value.
	Query(ctx context.Context, collection string, filters []Filter, limit int) ([]domain.Document, error)

	// Scan returns up to limit documents from collection in store order.
	Scan(ctx context.Context, collection string, limit int) ([]domain.Document, error)
}

// EvidenceFetcher retrieves evidence about a person from one external source.
// Implementations return an error on any failure; the caller decides how to
// degrade.
type EvidenceFetcher interface {
	Source() domain.EvidenceSource
}

// WikipediaFetcher looks up an encyclopedia summary.
type WikipediaFetcher interface {
	EvidenceFetcher
	FetchSummary(ctx context.Context, name, university string) (domain.EvidenceBundle, error)
}

// ScholarFetcher searches an academic author index.
type ScholarFetcher interface {
	EvidenceFetcher
	SearchAuthors(ctx context.Context, name, researchArea, university string) (domain.EvidenceBundle, error)
}

// WebSearcher runs a general web search and returns result links.
type WebSearcher interface {
	EvidenceFetcher
	Search(ctx context.Context, query string, prioritizeResearch bool) ([]string, error)
}

// ResultCache stores finished verification results.
// Implementations could use Redis or in-memory storage.
type ResultCache interface {
	// Get retrieves a cached result by key.
	// Returns the result and true if found, or false on a miss.
	Get(ctx context.Context, key string) (domain.VerificationResult, bool, error)

	// Set stores a result with an expiration time.
	// A zero duration means the item doesn't expire.
	Set(ctx context.Context, key string, result domain.VerificationResult, expiration time.Duration) error

	// Delete removes a result from the cache.
	// Returns nil if the key doesn't exist.
	Delete(ctx context.Context, key string) error
}

// HistoryStore records verification outcomes.
type HistoryStore interface {
	Record(ctx context.Context, entry domain.HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like cache hits/misses, errors, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like confidence scores.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
