package llm

import (
	"fmt"
	"net/url"
	"sync"
)

// Request option keys understood by every provider.
const (
	OptMaxTokens   = "max_tokens"
	OptModel       = "model"
	OptSystem      = "system"
	OptTemperature = "temperature"
	OptTopP        = "top_p"
	// OptJSONMode asks the provider for a JSON-only reply where the API
	// supports it. Providers without such a switch ignore it.
	OptJSONMode = "json_mode"
)

const (
	// DefaultMaxTokens caps generation when the caller does not.
	DefaultMaxTokens = 1024

	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinTopP        = 0.0
	MaxTopP        = 1.0
)

// BaseProvider holds the model name behind a lock so SetModel is safe while
// requests are in flight.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// RequestOptions is the normalized form of the options map.
type RequestOptions struct {
	MaxTokens   int
	Model       string
	Temperature *float64
	TopP        *float64
	System      string
	JSONMode    bool
	// Extra keeps keys this package does not recognize.
	Extra map[string]any
}

// ParseRequestOptions normalizes opts, falling back to defaults for missing
// or out-of-range values.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: ExtractOptionalInt(opts, OptMaxTokens, DefaultMaxTokens, IsPositiveInt),
		Model:     ExtractOptionalString(opts, OptModel, defaultModel, IsNonEmptyString),
		System:    ExtractOptionalString(opts, OptSystem, "", nil),
		JSONMode:  ExtractOptionalBool(opts, OptJSONMode, false),
		Extra:     make(map[string]any),
	}

	if temp, ok := extractFloat(opts, OptTemperature); ok && IsValidTemperature(temp) {
		options.Temperature = &temp
	}
	if topP, ok := extractFloat(opts, OptTopP); ok && IsValidTopP(topP) {
		options.TopP = &topP
	}

	for k, v := range opts {
		switch k {
		case OptMaxTokens, OptModel, OptSystem, OptTemperature, OptTopP, OptJSONMode:
		default:
			options.Extra[k] = v
		}
	}
	return options
}

// ExtractOptionalInt returns opts[key] when it is an int accepted by
// validator, otherwise defaultVal.
func ExtractOptionalInt(opts map[string]any, key string, defaultVal int, validator func(int) bool) int {
	v, ok := opts[key].(int)
	if !ok || (validator != nil && !validator(v)) {
		return defaultVal
	}
	return v
}

// ExtractOptionalString returns opts[key] when it is a string accepted by
// validator, otherwise defaultVal.
func ExtractOptionalString(opts map[string]any, key, defaultVal string, validator func(string) bool) string {
	v, ok := opts[key].(string)
	if !ok || (validator != nil && !validator(v)) {
		return defaultVal
	}
	return v
}

// ExtractOptionalBool returns opts[key] when it is a bool, otherwise defaultVal.
func ExtractOptionalBool(opts map[string]any, key string, defaultVal bool) bool {
	v, ok := opts[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// extractFloat accepts float64, float32 and int values.
func extractFloat(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func IsPositiveInt(val int) bool          { return val > 0 }
func IsNonEmptyString(val string) bool    { return val != "" }
func IsValidTemperature(val float64) bool { return val >= MinTemperature && val <= MaxTemperature }
func IsValidTopP(val float64) bool        { return val >= MinTopP && val <= MaxTopP }

// ValidateBaseURL requires an absolute http or https URL.
func ValidateBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("base URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base URL must include a host")
	}
	return u.String(), nil
}

// estimateTokens approximates four characters per token.
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// tokenCount prefers the API-reported count.
func tokenCount(reported int, text string) int {
	if reported > 0 {
		return reported
	}
	return estimateTokens(text)
}

func clampFloat64(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
