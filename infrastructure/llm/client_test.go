package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewClient covers provider lookup and configuration validation.
func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		config    ClientConfig
		wantErr   error
		wantModel string
	}{
		{
			name:      "google default model",
			provider:  "google",
			config:    ClientConfig{APIKey: "k"},
			wantModel: GoogleDefaultModel,
		},
		{
			name:      "openai explicit model",
			provider:  "openai",
			config:    ClientConfig{APIKey: "k", Model: "gpt-4o"},
			wantModel: "gpt-4o",
		},
		{
			name:      "anthropic default model",
			provider:  "anthropic",
			config:    ClientConfig{APIKey: "k"},
			wantModel: AnthropicDefaultModel,
		},
		{
			name:     "missing key",
			provider: "google",
			config:   ClientConfig{},
			wantErr:  ErrEmptyAPIKey,
		},
		{
			name:     "unknown provider",
			provider: "mistral",
			config:   ClientConfig{APIKey: "k"},
			wantErr:  ErrUnknownProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.provider, tt.config)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, client.GetModel())
			assert.Equal(t, tt.provider, client.Provider())
		})
	}
}

// TestNewClient_InvalidBaseURL verifies that a malformed endpoint is rejected
// at construction.
func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient("openai", ClientConfig{APIKey: "k", BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

// TestProviders lists the built-in providers.
func TestProviders(t *testing.T) {
	assert.Subset(t, Providers(), []string{"anthropic", "google", "openai"})
}

// TestClient_CompleteWithUsage verifies the client forwards prompt, options
// and token counts from the core.
func TestClient_CompleteWithUsage(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Response = `{"verified": false}`
	client := NewClientWithCore("mock", mock)

	text, in, out, err := client.CompleteWithUsage(context.Background(), "prompt", map[string]any{OptJSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, `{"verified": false}`, text)
	assert.Equal(t, 10, in)
	assert.Equal(t, 20, out)
	assert.Equal(t, "prompt", mock.LastPrompt)
	assert.Equal(t, true, mock.LastOpts[OptJSONMode])

	text, err = client.Complete(context.Background(), "again", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"verified": false}`, text)
	assert.Equal(t, 2, mock.GetCallCount())
}

// TestNewClientWithCore_MiddlewareOrder verifies the first middleware listed
// is the outermost wrapper.
func TestNewClientWithCore_MiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &orderLLM{CoreLLM: next, name: name, order: &order}
		}
	}

	client := NewClientWithCore("mock", NewMockCoreLLM(), tag("outer"), tag("inner"))
	_, err := client.Complete(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type orderLLM struct {
	CoreLLM
	name  string
	order *[]string
}

func (o *orderLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	*o.order = append(*o.order, o.name)
	return o.CoreLLM.DoRequest(ctx, prompt, opts)
}

// TestStandardMiddleware verifies which layers are included for a given
// configuration and that the assembled chain still serves requests.
func TestStandardMiddleware(t *testing.T) {
	full := StandardMiddleware("google", ResilienceConfig{
		Timeout:            time.Second,
		RequestsPerSecond:  100,
		Burst:              10,
		CircuitMaxFailures: 3,
		CircuitCooldown:    time.Second,
	}, newRecordingCollector())
	assert.Len(t, full, 5)

	bare := StandardMiddleware("google", ResilienceConfig{}, nil)
	assert.Len(t, bare, 1, "tracing is always present")

	client := NewClientWithCore("google", NewMockCoreLLM(), full...)
	_, err := client.Complete(context.Background(), "p", nil)
	assert.NoError(t, err)
}

// TestParseRequestOptions covers defaults, validation and the JSON mode flag.
func TestParseRequestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		o := ParseRequestOptions(nil, "m")
		assert.Equal(t, DefaultMaxTokens, o.MaxTokens)
		assert.Equal(t, "m", o.Model)
		assert.Nil(t, o.Temperature)
		assert.Nil(t, o.TopP)
		assert.False(t, o.JSONMode)
		assert.Empty(t, o.Extra)
	})

	t.Run("explicit values", func(t *testing.T) {
		o := ParseRequestOptions(map[string]any{
			OptMaxTokens:   256,
			OptModel:       "other",
			OptTemperature: float32(0.5),
			OptTopP:        0.9,
			OptSystem:      "sys",
			OptJSONMode:    true,
			"seed":         7,
		}, "m")
		assert.Equal(t, 256, o.MaxTokens)
		assert.Equal(t, "other", o.Model)
		require.NotNil(t, o.Temperature)
		assert.InDelta(t, 0.5, *o.Temperature, 1e-6)
		require.NotNil(t, o.TopP)
		assert.Equal(t, 0.9, *o.TopP)
		assert.Equal(t, "sys", o.System)
		assert.True(t, o.JSONMode)
		assert.Equal(t, map[string]any{"seed": 7}, o.Extra)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		o := ParseRequestOptions(map[string]any{
			OptMaxTokens:   -1,
			OptModel:       "",
			OptTemperature: 3.5,
			OptTopP:        "high",
			OptJSONMode:    "yes",
		}, "m")
		assert.Equal(t, DefaultMaxTokens, o.MaxTokens)
		assert.Equal(t, "m", o.Model)
		assert.Nil(t, o.Temperature)
		assert.Nil(t, o.TopP)
		assert.False(t, o.JSONMode)
	})
}

// TestValidateBaseURL checks scheme and host requirements.
func TestValidateBaseURL(t *testing.T) {
	got, err := ValidateBaseURL("https://api.example.com/v1")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1", got)

	for _, bad := range []string{"ftp://x", "http://", "::::"} {
		_, err := ValidateBaseURL(bad)
		assert.Error(t, err, bad)
	}
}

// TestTokenCount prefers reported counts and estimates otherwise.
func TestTokenCount(t *testing.T) {
	assert.Equal(t, 42, tokenCount(42, "ignored"))
	assert.Equal(t, 2, tokenCount(0, "abcdefgh"))
	assert.Equal(t, 0, tokenCount(0, ""))
}

// TestProviderError covers message formatting, unwrapping and classification.
func TestProviderError(t *testing.T) {
	base := errors.New("boom")
	ec := &ErrorClassifier{Provider: "google"}

	err := ec.ClassifyHTTPError(429, "slow down", base)
	assert.Equal(t, ErrorTypeRateLimit, err.Type)
	assert.Equal(t, "google error (HTTP 429) [rate_limit]: google rate limit exceeded: boom", err.Error())
	assert.True(t, errors.Is(err, base))

	assert.Equal(t, ErrorTypeAuthentication, ec.ClassifyHTTPError(403, "", base).Type)
	assert.Equal(t, ErrorTypeNotFound, ec.ClassifyHTTPError(404, "", base).Type)
	assert.Equal(t, ErrorTypeBadRequest, ec.ClassifyHTTPError(422, "", base).Type)
	assert.Equal(t, ErrorTypeServerError, ec.ClassifyHTTPError(503, "", base).Type)
	assert.Equal(t, ErrorTypeUnknown, ec.ClassifyHTTPError(0, "", base).Type)

	assert.Equal(t, ErrorTypeTimeout, ec.ClassifyContextError(context.DeadlineExceeded).Type)
	assert.Equal(t, ErrorTypeCanceled, ec.ClassifyContextError(context.Canceled).Type)
}
