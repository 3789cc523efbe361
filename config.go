package forgehook

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"
)

const (
	// Default values
	DefaultGitHubAPIURL       = "https://api.github.com"
	DefaultGitLabAPIURL       = "https://gitlab.com/api/v4"
	DefaultMaxRequestBodySize = 10 * 1024 * 1024 // 10MB
	DefaultSignatureScheme    = SignatureSchemeSHA1
	DefaultDedupTTL           = 24 * time.Hour

	// Circuit breaker defaults
	DefaultCircuitBreakerMaxRequests = 5
	DefaultCircuitBreakerInterval    = 60 * time.Second
	DefaultCircuitBreakerTimeout     = 30 * time.Second
	DefaultCircuitBreakerThreshold   = 0.7

	// Retry defaults
	DefaultRetryInitialDelay = 1 * time.Second
	DefaultRetryMaxDelay     = 30 * time.Second
	DefaultRetryMaxAttempts  = 3
	DefaultRetryMultiplier   = 2.0

	// HTTP client defaults
	DefaultHTTPTimeout = 30 * time.Second

	// Redis defaults
	DefaultRedisPoolSize     = 10
	DefaultRedisMinIdleConns = 5
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second

	// Memory cache defaults
	DefaultMemoryCacheMaxSize         = 10000
	DefaultMemoryCacheCleanupInterval = 1 * time.Hour
)

// Config represents the main configuration for the library
type Config struct {
	Provider Provider

	Secret          string
	SignatureScheme SignatureScheme

	SupportFormEncoded     bool
	ParsePayload           bool
	RejectInvalidSignature bool

	Dedup DedupConfig

	Manager ManagerConfig

	CircuitBreaker CircuitBreakerConfig

	Retry RetryConfig

	HTTPClient HTTPClientConfig

	Logging LoggingConfig
}

// DedupConfig configures delivery deduplication
type DedupConfig struct {
	Enabled bool
	Type    string // "redis" or "memory"
	Redis   RedisConfig
	Memory  MemoryConfig
	TTL     time.Duration
}

// RedisConfig configures Redis connection
type RedisConfig struct {
	Address       string
	Password      string
	DB            int
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	EnableTLS     bool
	TLSSkipVerify bool
	TLSConfig     *tls.Config
}

// MemoryConfig configures in-memory cache
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
	EnableLRU       bool
}

// ManagerConfig configures hook management against the provider API
type ManagerConfig struct {
	APIBaseURL string // defaults per provider when empty
	Token      string
	HookURL    string // URL the provider delivers hooks to
}

// CircuitBreakerConfig configures circuit breaker
type CircuitBreakerConfig struct {
	MaxRequests int
	Interval    time.Duration
	Timeout     time.Duration
	Threshold   float64 // Failure ratio threshold (0.0-1.0)
}

// RetryConfig configures retry strategy
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Multiplier   float64
}

// HTTPClientConfig configures HTTP client
type HTTPClientConfig struct {
	Timeout            time.Duration
	MaxRequestBodySize int64
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json", "console"
}

// ConfigBuilder provides a fluent interface for building Config
type ConfigBuilder struct {
	config *Config
}

// NewConfig creates a new ConfigBuilder with defaults
func NewConfig() *ConfigBuilder {
	return &ConfigBuilder{
		config: &Config{
			Provider:           ProviderAuto,
			SignatureScheme:    DefaultSignatureScheme,
			SupportFormEncoded: true,
			ParsePayload:       true,
			Dedup: DedupConfig{
				Enabled: false,
				Type:    "memory",
				TTL:     DefaultDedupTTL,
				Redis: RedisConfig{
					PoolSize:     DefaultRedisPoolSize,
					MinIdleConns: DefaultRedisMinIdleConns,
					DialTimeout:  DefaultRedisDialTimeout,
					ReadTimeout:  DefaultRedisReadTimeout,
					WriteTimeout: DefaultRedisWriteTimeout,
				},
				Memory: MemoryConfig{
					MaxSize:         DefaultMemoryCacheMaxSize,
					CleanupInterval: DefaultMemoryCacheCleanupInterval,
					EnableLRU:       false,
				},
			},
			CircuitBreaker: CircuitBreakerConfig{
				MaxRequests: DefaultCircuitBreakerMaxRequests,
				Interval:    DefaultCircuitBreakerInterval,
				Timeout:     DefaultCircuitBreakerTimeout,
				Threshold:   DefaultCircuitBreakerThreshold,
			},
			Retry: RetryConfig{
				InitialDelay: DefaultRetryInitialDelay,
				MaxDelay:     DefaultRetryMaxDelay,
				MaxAttempts:  DefaultRetryMaxAttempts,
				Multiplier:   DefaultRetryMultiplier,
			},
			HTTPClient: HTTPClientConfig{
				Timeout:            DefaultHTTPTimeout,
				MaxRequestBodySize: DefaultMaxRequestBodySize,
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
			},
		},
	}
}

// WithProvider sets the webhook provider
func (b *ConfigBuilder) WithProvider(provider Provider) *ConfigBuilder {
	b.config.Provider = provider
	return b
}

// WithSecret sets the shared secret used to verify deliveries
func (b *ConfigBuilder) WithSecret(secret string) *ConfigBuilder {
	b.config.Secret = secret
	return b
}

// WithSignatureScheme sets the signature digest scheme
func (b *ConfigBuilder) WithSignatureScheme(scheme SignatureScheme) *ConfigBuilder {
	b.config.SignatureScheme = scheme
	return b
}

// WithFormEncoded enables or disables form-urlencoded request bodies
func (b *ConfigBuilder) WithFormEncoded(enabled bool) *ConfigBuilder {
	b.config.SupportFormEncoded = enabled
	return b
}

// WithPayloadParsing enables or disables parsing payloads into a value
// tree
func (b *ConfigBuilder) WithPayloadParsing(enabled bool) *ConfigBuilder {
	b.config.ParsePayload = enabled
	return b
}

// WithRejectInvalidSignature makes dispatch refuse deliveries whose
// signature fails verification instead of handing them to handlers
func (b *ConfigBuilder) WithRejectInvalidSignature(reject bool) *ConfigBuilder {
	b.config.RejectInvalidSignature = reject
	return b
}

// WithDedup sets the deduplication configuration
func (b *ConfigBuilder) WithDedup(dedup DedupConfig) *ConfigBuilder {
	b.config.Dedup = dedup
	return b
}

// WithManager sets the hook management configuration
func (b *ConfigBuilder) WithManager(manager ManagerConfig) *ConfigBuilder {
	b.config.Manager = manager
	return b
}

// WithCircuitBreaker sets the circuit breaker configuration
func (b *ConfigBuilder) WithCircuitBreaker(cb CircuitBreakerConfig) *ConfigBuilder {
	b.config.CircuitBreaker = cb
	return b
}

// WithRetry sets the retry configuration
func (b *ConfigBuilder) WithRetry(retry RetryConfig) *ConfigBuilder {
	b.config.Retry = retry
	return b
}

// WithHTTPClient sets the HTTP client configuration
func (b *ConfigBuilder) WithHTTPClient(hc HTTPClientConfig) *ConfigBuilder {
	b.config.HTTPClient = hc
	return b
}

// WithLogging sets the logging configuration
func (b *ConfigBuilder) WithLogging(logging LoggingConfig) *ConfigBuilder {
	b.config.Logging = logging
	return b
}

// Build validates and returns the Config
func (b *ConfigBuilder) Build() (*Config, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	return b.config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.Provider.Valid() {
		return fmt.Errorf("invalid provider: %s", c.Provider)
	}

	if !c.SignatureScheme.Valid() {
		return fmt.Errorf("invalid signature scheme: %s (must be 'sha1' or 'sha256')", c.SignatureScheme)
	}

	if c.RejectInvalidSignature && c.Secret == "" {
		return errors.New("RejectInvalidSignature requires a Secret")
	}

	if c.Dedup.Enabled {
		if c.Dedup.Type != "redis" && c.Dedup.Type != "memory" {
			return fmt.Errorf("invalid dedup cache type: %s (must be 'redis' or 'memory')", c.Dedup.Type)
		}

		if c.Dedup.Type == "redis" {
			if c.Dedup.Redis.Address == "" {
				return errors.New("Redis address is required when using Redis dedup cache")
			}
		}
	}

	if c.CircuitBreaker.Threshold < 0 || c.CircuitBreaker.Threshold > 1 {
		return errors.New("circuit breaker threshold must be between 0 and 1")
	}

	if c.Retry.Multiplier <= 0 {
		return errors.New("retry multiplier must be greater than 0")
	}

	if c.HTTPClient.MaxRequestBodySize <= 0 {
		return errors.New("max request body size must be greater than 0")
	}

	return nil
}

// NewGitHubConfig creates a new ConfigBuilder with GitHub defaults
func NewGitHubConfig() *ConfigBuilder {
	builder := NewConfig()
	builder.config.Provider = ProviderGitHub
	builder.config.Manager.APIBaseURL = DefaultGitHubAPIURL
	return builder
}

// NewGitLabConfig creates a new ConfigBuilder with GitLab defaults
func NewGitLabConfig() *ConfigBuilder {
	builder := NewConfig()
	builder.config.Provider = ProviderGitLab
	builder.config.Manager.APIBaseURL = DefaultGitLabAPIURL
	return builder
}
