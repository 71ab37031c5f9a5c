package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

type metricPoint struct {
	name   string
	value  float64
	labels map[string]string
}

// recordingCollector captures every metric call.
type recordingCollector struct {
	mu         sync.Mutex
	counters   []metricPoint
	histograms []metricPoint
	gauges     []metricPoint
}

func newRecordingCollector() *recordingCollector { return &recordingCollector{} }

func (r *recordingCollector) RecordLatency(string, time.Duration, map[string]string) {}

func (r *recordingCollector) RecordGauge(name string, v float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges = append(r.gauges, metricPoint{name, v, labels})
}

func (r *recordingCollector) RecordCounter(name string, v float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, metricPoint{name, v, labels})
}

func (r *recordingCollector) RecordHistogram(name string, v float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histograms = append(r.histograms, metricPoint{name, v, labels})
}

// TestTimeoutMiddleware covers deadline enforcement and pass-through.
func TestTimeoutMiddleware(t *testing.T) {
	t.Run("succeeds within timeout", func(t *testing.T) {
		mock := NewMockCoreLLM()
		mock.ResponseDelay = 5 * time.Millisecond
		wrapped := TimeoutMiddleware(time.Second)(mock)

		_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
		require.NoError(t, err)
		_, hasDeadline := mock.LastContext.Deadline()
		assert.True(t, hasDeadline)
	})

	t.Run("fails when exceeding timeout", func(t *testing.T) {
		mock := NewMockCoreLLM()
		mock.ResponseDelay = 200 * time.Millisecond
		wrapped := TimeoutMiddleware(10 * time.Millisecond)(mock)

		_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("zero timeout leaves context alone", func(t *testing.T) {
		mock := NewMockCoreLLM()
		wrapped := TimeoutMiddleware(0)(mock)

		_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
		require.NoError(t, err)
		_, hasDeadline := mock.LastContext.Deadline()
		assert.False(t, hasDeadline)
	})

	t.Run("model methods pass through", func(t *testing.T) {
		mock := NewMockCoreLLM()
		wrapped := TimeoutMiddleware(time.Second)(mock)
		wrapped.SetModel("other")
		assert.Equal(t, "other", wrapped.GetModel())
		assert.Equal(t, "other", mock.GetModel())
	})
}

// TestRateLimitMiddleware verifies burst handling, pacing and cancellation.
func TestRateLimitMiddleware(t *testing.T) {
	t.Run("burst passes immediately then paces", func(t *testing.T) {
		mock := NewMockCoreLLM()
		wrapped := RateLimitMiddleware(rate.Limit(20), 2)(mock)
		ctx := context.Background()

		start := time.Now()
		for range 3 {
			_, _, _, err := wrapped.DoRequest(ctx, "p", nil)
			require.NoError(t, err)
		}
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
		assert.Equal(t, 3, mock.GetCallCount())
	})

	t.Run("canceled context is not forwarded", func(t *testing.T) {
		mock := NewMockCoreLLM()
		wrapped := RateLimitMiddleware(rate.Limit(0.001), 1)(mock)

		_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, _, _, err = wrapped.DoRequest(ctx, "p", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit")
		assert.Equal(t, 1, mock.GetCallCount())
	})

	t.Run("underlying errors are returned", func(t *testing.T) {
		mock := NewMockCoreLLM()
		mock.Error = errors.New("provider down")
		wrapped := RateLimitMiddleware(rate.Inf, 1)(mock)

		_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
		assert.EqualError(t, err, "provider down")
	})
}

// fakeClock lets breaker tests move time without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// TestCircuitBreaker walks the breaker through open, half-open and closed.
func TestCircuitBreaker(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = clock.Now

	fail := func() error { return errors.New("fail") }
	ok := func() error { return nil }

	assert.Error(t, cb.Call(fail))
	assert.Equal(t, StateClosed, cb.State())
	assert.Error(t, cb.Call(fail))
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Call(ok), ErrCircuitOpen, "rejected during cooldown")

	clock.Advance(time.Minute)
	assert.Error(t, cb.Call(fail), "probe failure reopens")
	assert.Equal(t, StateOpen, cb.State())

	clock.Advance(time.Minute)
	assert.NoError(t, cb.Call(ok))
	assert.Equal(t, StateClosed, cb.State())
}

// TestCircuitBreaker_SuccessResetsFailures verifies failures must be
// consecutive to trip the breaker.
func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	fail := func() error { return errors.New("fail") }

	assert.Error(t, cb.Call(fail))
	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Error(t, cb.Call(fail))
	assert.Equal(t, StateClosed, cb.State())
}

type breakerMetrics struct {
	successes, failures, trips int
	last                       CircuitBreakerState
}

func (m *breakerMetrics) RecordState(s CircuitBreakerState) { m.last = s }
func (m *breakerMetrics) RecordTrip()                       { m.trips++ }
func (m *breakerMetrics) RecordSuccess()                    { m.successes++ }
func (m *breakerMetrics) RecordFailure()                    { m.failures++ }

// TestCircuitBreakerMiddleware verifies the provider is not called while
// open and metrics observe each outcome.
func TestCircuitBreakerMiddleware(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Error = errors.New("503")
	metrics := &breakerMetrics{}
	wrapped := CircuitBreakerMiddlewareWithMetrics(2, time.Hour, metrics)(mock)
	ctx := context.Background()

	for range 2 {
		_, _, _, err := wrapped.DoRequest(ctx, "p", nil)
		assert.EqualError(t, err, "503")
	}
	_, _, _, err := wrapped.DoRequest(ctx, "p", nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	assert.Equal(t, 2, mock.GetCallCount())
	assert.Equal(t, 2, metrics.failures)
	assert.Equal(t, 1, metrics.trips)
	assert.Equal(t, StateOpen, metrics.last)
}

// TestCollectorBreakerMetrics verifies breaker events reach a
// MetricsCollector with the provider label.
func TestCollectorBreakerMetrics(t *testing.T) {
	collector := newRecordingCollector()
	mock := NewMockCoreLLM()
	mock.Error = errors.New("503")
	wrapped := CircuitBreakerMiddlewareWithMetrics(1, time.Hour,
		NewCollectorBreakerMetrics(collector, "anthropic"))(mock)

	for range 2 {
		_, _, _, _ = wrapped.DoRequest(context.Background(), "p", nil)
	}

	require.Len(t, collector.counters, 2)
	assert.Equal(t, "llm_circuit_events_total", collector.counters[0].name)
	assert.Equal(t, map[string]string{"provider": "anthropic", "event": "failure"}, collector.counters[0].labels)
	assert.Equal(t, "rejected", collector.counters[1].labels["event"])

	require.Len(t, collector.gauges, 2)
	assert.Equal(t, "llm_circuit_state", collector.gauges[1].name)
	assert.Equal(t, float64(StateOpen), collector.gauges[1].value)
}

// TestMetricsMiddleware verifies latency, request and token metrics and
// their labels.
func TestMetricsMiddleware(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		collector := newRecordingCollector()
		mock := NewMockCoreLLM()
		wrapped := MetricsMiddleware(collector, "google")(mock)

		_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
		require.NoError(t, err)

		require.Len(t, collector.histograms, 1)
		assert.Equal(t, "llm_latency_seconds", collector.histograms[0].name)
		assert.Equal(t, map[string]string{"provider": "google", "model": "test-model", "status": "success"},
			collector.histograms[0].labels)

		require.Len(t, collector.counters, 3)
		assert.Equal(t, "llm_requests_total", collector.counters[0].name)
		assert.Equal(t, "llm_tokens_total", collector.counters[1].name)
		assert.Equal(t, 10.0, collector.counters[1].value)
		assert.Equal(t, "input", collector.counters[1].labels["token_type"])
		assert.Equal(t, 20.0, collector.counters[2].value)
		assert.Equal(t, "output", collector.counters[2].labels["token_type"])
		_, leaked := collector.counters[0].labels["token_type"]
		assert.False(t, leaked, "request labels must not be mutated")
	})

	statuses := []struct {
		err  error
		want string
	}{
		{errors.New("x"), "error"},
		{ErrCircuitOpen, "circuit_open"},
		{NewProviderError("google", ErrorTypeTimeout, 0, "", context.DeadlineExceeded), "timeout"},
	}
	for _, tt := range statuses {
		t.Run(tt.want, func(t *testing.T) {
			collector := newRecordingCollector()
			mock := NewMockCoreLLM()
			mock.Error = tt.err
			wrapped := MetricsMiddleware(collector, "openai")(mock)

			_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
			require.Error(t, err)
			require.Len(t, collector.counters, 1, "no token counters on failure")
			assert.Equal(t, tt.want, collector.counters[0].labels["status"])
		})
	}

	t.Run("nil collector", func(t *testing.T) {
		wrapped := MetricsMiddleware(nil, "google")(NewMockCoreLLM())
		_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
		assert.NoError(t, err)
	})
}

// recordingSpan and recordingTracer capture span activity without an SDK.
type recordingSpan struct {
	noop.Span
	name   string
	attrs  []attribute.KeyValue
	errs   []error
	status codes.Code
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) { s.attrs = append(s.attrs, kv...) }
func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}
func (s *recordingSpan) SetStatus(c codes.Code, _ string) { s.status = c }
func (s *recordingSpan) End(...trace.SpanEndOption)       { s.ended = true }

func (s *recordingSpan) attr(key string) (attribute.Value, bool) {
	for _, kv := range s.attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

type recordingTracer struct {
	noop.Tracer
	spans []*recordingSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordingSpan{name: name, attrs: cfg.Attributes()}
	r.spans = append(r.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

// TestTracingMiddleware verifies span naming, attributes and error recording.
func TestTracingMiddleware(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		tracer := &recordingTracer{}
		wrapped := TracingMiddlewareWithTracer(tracer, "google")(NewMockCoreLLM())

		_, _, _, err := wrapped.DoRequest(context.Background(), "hello", nil)
		require.NoError(t, err)

		require.Len(t, tracer.spans, 1)
		span := tracer.spans[0]
		assert.Equal(t, "llm.request", span.name)
		assert.True(t, span.ended)
		v, ok := span.attr("llm.provider")
		require.True(t, ok)
		assert.Equal(t, "google", v.AsString())
		v, ok = span.attr("llm.tokens.output")
		require.True(t, ok)
		assert.Equal(t, int64(20), v.AsInt64())
		assert.Empty(t, span.errs)
	})

	t.Run("failure", func(t *testing.T) {
		tracer := &recordingTracer{}
		mock := NewMockCoreLLM()
		mock.Error = errors.New("bad gateway")
		wrapped := TracingMiddlewareWithTracer(tracer, "openai")(mock)

		_, _, _, err := wrapped.DoRequest(context.Background(), "hello", nil)
		require.Error(t, err)

		span := tracer.spans[0]
		assert.Equal(t, codes.Error, span.status)
		require.Len(t, span.errs, 1)
		assert.EqualError(t, span.errs[0], "bad gateway")
	})

	t.Run("downstream sees span context", func(t *testing.T) {
		tracer := &recordingTracer{}
		mock := NewMockCoreLLM()
		wrapped := TracingMiddlewareWithTracer(tracer, "google")(mock)

		_, _, _, err := wrapped.DoRequest(context.Background(), "hello", nil)
		require.NoError(t, err)
		assert.Same(t, tracer.spans[0], trace.SpanFromContext(mock.LastContext))
	})
}
