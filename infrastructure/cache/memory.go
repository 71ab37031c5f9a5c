package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Em-Deesha/profverify/internal/domain"
	"github.com/Em-Deesha/profverify/internal/ports"
)

type memoryEntry struct {
	result    domain.VerificationResult
	expiresAt time.Time // zero means no expiry
}

// Memory is a process-local ResultCache. Expired entries are dropped on
// read.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ ports.ResultCache = (*Memory)(nil)

// NewMemory creates an empty cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements ports.ResultCache.
func (m *Memory) Get(_ context.Context, key string) (domain.VerificationResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return domain.VerificationResult{}, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return domain.VerificationResult{}, false, nil
	}
	return cloneResult(e.result), true, nil
}

// Set implements ports.ResultCache.
func (m *Memory) Set(_ context.Context, key string, result domain.VerificationResult, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{result: cloneResult(result)}
	if expiration > 0 {
		e.expiresAt = m.now().Add(expiration)
	}
	m.entries[key] = e
	return nil
}

// Delete implements ports.ResultCache.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func cloneResult(r domain.VerificationResult) domain.VerificationResult {
	r.EvidenceLinks = slices.Clone(r.EvidenceLinks)
	return r
}
