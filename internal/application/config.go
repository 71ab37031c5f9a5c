// Package application holds the runtime configuration of the verification
// service and the wiring that turns it into adapters.
package application

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Em-Deesha/profverify/internal/domain"
)

// Default configuration values.
const (
	DefaultAppID              = "academic-match-production"
	DefaultProvider           = "google"
	DefaultLLMTimeout         = 20 * time.Second
	DefaultRequestsPerSecond  = 2.0
	DefaultBurst              = 4
	DefaultCircuitMaxFailures = 5
	DefaultCircuitCooldown    = 30 * time.Second
	DefaultFetchTimeout       = 10 * time.Second
	DefaultScholarRPS         = 1.0
	DefaultUserAgent          = "Mozilla/5.0"
	DefaultCacheTTL           = 24 * time.Hour
	DefaultLogLevel           = "info"
)

// apiKeyEnv maps each provider to the environment variable holding its key.
var apiKeyEnv = map[string]string{
	"google":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Config is the complete runtime configuration. It is read from an optional
// YAML file and then overridden by environment variables.
type Config struct {
	// AppID selects the first candidate collection searched for stored
	// professor profiles.
	AppID string `yaml:"app_id" validate:"required,appid"`

	// LLM configures the model used to produce verdicts.
	LLM LLMConfig `yaml:"llm"`

	// Evidence configures the external evidence sources.
	Evidence EvidenceConfig `yaml:"evidence"`

	// Store configures the document and history database.
	Store StoreConfig `yaml:"store"`

	// Cache configures the verification result cache.
	Cache CacheConfig `yaml:"cache"`

	// Log configures the logger.
	Log LogConfig `yaml:"log"`

	// Metrics configures the Prometheus listener.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LLMConfig configures the LLM verifier and its middleware chain.
type LLMConfig struct {
	// Provider names the backend: google, openai or anthropic.
	Provider string `yaml:"provider" validate:"required,oneof=google openai anthropic"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// APIKey authenticates against the provider. When empty no client is
	// built and every verification uses the heuristic scorer.
	APIKey string `yaml:"api_key"`

	// Timeout bounds a single model call.
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`

	// RequestsPerSecond and Burst configure the client side rate limiter.
	// A zero rate disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`

	// CircuitMaxFailures consecutive failures open the circuit for
	// CircuitCooldown. Zero disables the breaker.
	CircuitMaxFailures int           `yaml:"circuit_max_failures" validate:"gte=0"`
	CircuitCooldown    time.Duration `yaml:"circuit_cooldown" validate:"gte=0"`
}

// EvidenceConfig configures the evidence fetchers.
type EvidenceConfig struct {
	Timeout            time.Duration `yaml:"timeout" validate:"gt=0"`
	Parallel           bool          `yaml:"parallel"`
	SemanticScholarRPS float64       `yaml:"semantic_scholar_rps" validate:"gte=0"`
	UserAgent          string        `yaml:"user_agent" validate:"required"`
}

// StoreConfig configures PostgreSQL. An empty DatabaseURL disables both the
// profile store and the verification history.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" validate:"omitempty,pgdsn"`
}

// CacheConfig configures the result cache. An empty RedisAddr selects the
// in-memory cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr" validate:"omitempty,hostname_port"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db" validate:"gte=0"`
	TTL       time.Duration `yaml:"ttl" validate:"gte=0"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"loglevel"`
}

// MetricsConfig configures the Prometheus listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when neither a file nor the
// environment sets a value.
func Default() *Config {
	return &Config{
		AppID: DefaultAppID,
		LLM: LLMConfig{
			Provider:           DefaultProvider,
			Timeout:            DefaultLLMTimeout,
			RequestsPerSecond:  DefaultRequestsPerSecond,
			Burst:              DefaultBurst,
			CircuitMaxFailures: DefaultCircuitMaxFailures,
			CircuitCooldown:    DefaultCircuitCooldown,
		},
		Evidence: EvidenceConfig{
			Timeout:            DefaultFetchTimeout,
			Parallel:           true,
			SemanticScholarRPS: DefaultScholarRPS,
			UserAgent:          DefaultUserAgent,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     DefaultCacheTTL,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment, then validates it.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from environment variables. Unset variables
// leave the field unchanged; malformed values are an error.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}

	str("APP_ID", &c.AppID)
	str("VERIFIER_PROVIDER", &c.LLM.Provider)
	str("VERIFIER_MODEL", &c.LLM.Model)
	if key, ok := apiKeyEnv[c.LLM.Provider]; ok {
		str(key, &c.LLM.APIKey)
	}
	dur("LLM_TIMEOUT", &c.LLM.Timeout)
	dur("FETCH_TIMEOUT", &c.Evidence.Timeout)
	boolean("FETCH_PARALLEL", &c.Evidence.Parallel)
	str("DATABASE_URL", &c.Store.DatabaseURL)
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	dur("CACHE_TTL", &c.Cache.TTL)
	boolean("CACHE_ENABLED", &c.Cache.Enabled)
	str("LOG_LEVEL", &c.Log.Level)
	str("METRICS_ADDR", &c.Metrics.Addr)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, errors.Join(errs...))
	}
	return nil
}

// Validate checks the configuration against its struct tags and returns a
// domain.ValidationError listing every failing field.
func (c *Config) Validate() error {
	v, err := newValidator()
	if err != nil {
		return err
	}

	err = v.Struct(c)
	if err == nil {
		return nil
	}

	verr := domain.NewValidationError("Config")
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	for _, fe := range fieldErrs {
		verr.AddError(describeFieldError(fe))
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, verr)
}

// HasLLM reports whether an API key is configured.
func (c *Config) HasLLM() bool { return c.LLM.APIKey != "" }
