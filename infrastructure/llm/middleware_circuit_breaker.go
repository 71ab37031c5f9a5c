package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Em-Deesha/profverify/internal/ports"
)

// ErrCircuitOpen is returned without contacting the provider while the
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState is the breaker's current mode.
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerMetrics observes breaker transitions.
type CircuitBreakerMetrics interface {
	RecordState(state CircuitBreakerState)
	RecordTrip()
	RecordSuccess()
	RecordFailure()
}

// CircuitBreaker opens after maxFailures consecutive failures and lets a
// single probe through once cooldown has elapsed.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        CircuitBreakerState
	failures     int
	maxFailures  int
	cooldown     time.Duration
	lastFailure  time.Time
	now          func() time.Time
	probeRunning bool
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		state:       StateClosed,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Call runs fn unless the breaker is open. The lock is not held while fn
// runs, so slow provider calls do not serialize each other.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probeRunning = true
	case StateHalfOpen:
		if cb.probeRunning {
			return ErrCircuitOpen
		}
		cb.probeRunning = true
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasProbe := cb.state == StateHalfOpen
	cb.probeRunning = false

	if err == nil {
		cb.failures = 0
		cb.state = StateClosed
		return
	}

	cb.failures++
	cb.lastFailure = cb.now()
	if wasProbe || cb.failures >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

type circuitBreakerLLM struct {
	next    CoreLLM
	cb      *CircuitBreaker
	metrics CircuitBreakerMetrics
}

// CircuitBreakerMiddleware fails fast after repeated provider errors.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	return CircuitBreakerMiddlewareWithMetrics(maxFailures, cooldown, nil)
}

// CircuitBreakerMiddlewareWithMetrics is CircuitBreakerMiddleware reporting to metrics.
func CircuitBreakerMiddlewareWithMetrics(maxFailures int, cooldown time.Duration, metrics CircuitBreakerMetrics) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)
	return func(next CoreLLM) CoreLLM {
		return &circuitBreakerLLM{next: next, cb: cb, metrics: metrics}
	}
}

func (c *circuitBreakerLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var (
		response            string
		tokensIn, tokensOut int
	)
	err := c.cb.Call(func() error {
		var err error
		response, tokensIn, tokensOut, err = c.next.DoRequest(ctx, prompt, opts)
		return err
	})

	if c.metrics != nil {
		switch {
		case err == nil:
			c.metrics.RecordSuccess()
		case errors.Is(err, ErrCircuitOpen):
			c.metrics.RecordTrip()
		default:
			c.metrics.RecordFailure()
		}
		c.metrics.RecordState(c.cb.State())
	}
	return response, tokensIn, tokensOut, err
}

func (c *circuitBreakerLLM) GetModel() string  { return c.next.GetModel() }
func (c *circuitBreakerLLM) SetModel(m string) { c.next.SetModel(m) }

// collectorBreakerMetrics reports breaker activity through a
// ports.MetricsCollector as llm_circuit_state and llm_circuit_events_total.
type collectorBreakerMetrics struct {
	collector ports.MetricsCollector
	provider  string
}

// NewCollectorBreakerMetrics adapts collector to CircuitBreakerMetrics.
func NewCollectorBreakerMetrics(collector ports.MetricsCollector, provider string) CircuitBreakerMetrics {
	return &collectorBreakerMetrics{collector: collector, provider: provider}
}

func (m *collectorBreakerMetrics) RecordState(state CircuitBreakerState) {
	m.collector.RecordGauge("llm_circuit_state", float64(state), map[string]string{"provider": m.provider})
}

func (m *collectorBreakerMetrics) RecordTrip()    { m.event("rejected") }
func (m *collectorBreakerMetrics) RecordSuccess() { m.event("success") }
func (m *collectorBreakerMetrics) RecordFailure() { m.event("failure") }

func (m *collectorBreakerMetrics) event(kind string) {
	m.collector.RecordCounter("llm_circuit_events_total", 1, map[string]string{"provider": m.provider, "event": kind})
}
