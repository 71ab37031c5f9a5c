package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errSimulated is returned by MockCoreLLM when FailUntilAttempt is set
// without an explicit Error.
var errSimulated = errors.New("simulated failure")

// MockCoreLLM is a scriptable CoreLLM for middleware and service tests.
type MockCoreLLM struct {
	mu sync.Mutex

	Response      string
	TokensIn      int
	TokensOut     int
	Error         error
	Model         string
	ResponseDelay time.Duration

	// FailUntilAttempt makes the first N calls fail.
	FailUntilAttempt int

	CallCount      int
	LastPrompt     string
	LastOpts       map[string]any
	LastContext    context.Context
	CallTimestamps []time.Time
}

// NewMockCoreLLM returns a mock that always succeeds.
func NewMockCoreLLM() *MockCoreLLM {
	return &MockCoreLLM{
		Response:  `{"verified": true, "confidence_score": 80, "summary": "test response"}`,
		TokensIn:  10,
		TokensOut: 20,
		Model:     "test-model",
	}
}

func (m *MockCoreLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.CallCount++
	call := m.CallCount
	m.LastPrompt = prompt
	m.LastOpts = opts
	m.LastContext = ctx
	m.CallTimestamps = append(m.CallTimestamps, time.Now())
	delay, failUntil, configured := m.ResponseDelay, m.FailUntilAttempt, m.Error
	response, in, out := m.Response, m.TokensIn, m.TokensOut
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}

	if failUntil > 0 && call <= failUntil {
		if configured != nil {
			return "", 0, 0, configured
		}
		return "", 0, 0, errSimulated
	}
	if failUntil == 0 && configured != nil {
		return "", 0, 0, configured
	}
	return response, in, out, nil
}

func (m *MockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

func (m *MockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Model = model
}

// GetCallCount returns how many times DoRequest ran.
func (m *MockCoreLLM) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}
