// Package llm adapts hosted language model APIs to ports.LLMClient.
//
// Each provider (Google Gemini, OpenAI, Anthropic) implements CoreLLM, and
// operational behavior is layered on with Middleware: timeouts, rate
// limiting, circuit breaking, metrics and tracing. The verifier only sees
// the Complete method.
//
// Basic usage:
//
//	client, err := llm.NewClient("google", llm.ClientConfig{
//	    APIKey: os.Getenv("GEMINI_API_KEY"),
//	    Middleware: llm.StandardMiddleware("google", llm.ResilienceConfig{
//	        Timeout:           20 * time.Second,
//	        RequestsPerSecond: 2,
//	        Burst:             4,
//	    }, collector),
//	})
//	text, err := client.Complete(ctx, prompt, map[string]any{"json_mode": true})
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Em-Deesha/profverify/internal/ports"
)

// CoreLLM is the minimal contract a provider implements. Middleware wraps
// CoreLLM values, so anything conforming can be decorated.
type CoreLLM interface {
	// DoRequest sends prompt to the provider and returns the text plus input
	// and output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	GetModel() string
	SetModel(model string)
}

// Middleware wraps a CoreLLM to add cross-cutting behavior.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig configures a provider and the middleware around it.
type ClientConfig struct {
	// APIKey authenticates against the provider.
	APIKey string

	// Model overrides the provider default model when set.
	Model string

	// BaseURL overrides the provider endpoint. Used by tests and proxies.
	BaseURL string

	// Timeout bounds the underlying HTTP client where the SDK allows it.
	Timeout time.Duration

	// Middleware is applied so that the first entry is the outermost.
	Middleware []Middleware
}

// Client implements ports.LLMClient on top of a decorated CoreLLM.
type Client struct {
	core     CoreLLM
	provider string
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient builds a client for the registered provider.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factory, ok := lookupProviderFactory(providerType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	return NewClientWithCore(providerType, core, config.Middleware...), nil
}

// NewClientWithCore wraps an existing CoreLLM, applying middleware so the
// first one listed runs first.
func NewClientWithCore(provider string, core CoreLLM, middleware ...Middleware) *Client {
	for i := len(middleware) - 1; i >= 0; i-- {
		core = middleware[i](core)
	}
	return &Client{core: core, provider: provider}
}

// Complete sends prompt and returns the generated text.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage is Complete plus token counts.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// GetModel returns the model of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// Provider returns the registry name the client was built with.
func (c *Client) Provider() string { return c.provider }

// ResilienceConfig holds the operational limits applied by StandardMiddleware.
// Zero values disable the corresponding layer.
type ResilienceConfig struct {
	Timeout            time.Duration
	RequestsPerSecond  float64
	Burst              int
	CircuitMaxFailures int
	CircuitCooldown    time.Duration
}

// StandardMiddleware returns the chain used by the verifier, outermost
// first: tracing, metrics, circuit breaker, rate limit, timeout.
func StandardMiddleware(provider string, cfg ResilienceConfig, collector ports.MetricsCollector) []Middleware {
	chain := []Middleware{TracingMiddleware(provider)}
	if collector != nil {
		chain = append(chain, MetricsMiddleware(collector, provider))
	}
	if cfg.CircuitMaxFailures > 0 {
		var cbMetrics CircuitBreakerMetrics
		if collector != nil {
			cbMetrics = NewCollectorBreakerMetrics(collector, provider)
		}
		chain = append(chain, CircuitBreakerMiddlewareWithMetrics(cfg.CircuitMaxFailures, cfg.CircuitCooldown, cbMetrics))
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		chain = append(chain, RateLimitMiddleware(rate.Limit(cfg.RequestsPerSecond), burst))
	}
	if cfg.Timeout > 0 {
		chain = append(chain, TimeoutMiddleware(cfg.Timeout))
	}
	return chain
}

// ProviderFactory creates a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var (
	factoriesMu       sync.RWMutex
	providerFactories = map[string]ProviderFactory{}
)

// RegisterProviderFactory makes a provider available to NewClient.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	providerFactories[providerType] = factory
}

func lookupProviderFactory(providerType string) (ProviderFactory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := providerFactories[providerType]
	return f, ok
}

// Providers lists registered provider names in sorted order.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
