package httpclient

import (
	"time"

	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/security"
	"github.com/kbukum/restkit/transfer"
	"github.com/kbukum/restkit/validation"
	"github.com/kbukum/restkit/version"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultContentType     = "application/json"
	defaultRequestIDHeader = "X-Request-ID"
)

// Config configures the HTTP client.
type Config struct {
	// Name identifies the client in logs, spans and metrics.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is the base URL prepended to all request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout bounds a buffered request. Defaults to 30s. Streams and
	// downloads are bounded by the caller's context only.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// UserAgent is sent on every request. Defaults to restkit/<version>.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// DefaultContentType is the declared type for structured request bodies
	// that do not name one. Defaults to application/json.
	DefaultContentType string `yaml:"default_content_type" mapstructure:"default_content_type" validate:"omitempty,mediatype"`

	// ChunkSize is the copy chunk for downloads. Defaults to 32 KiB.
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size" validate:"gte=0"`

	// DumpHeaders logs request and response headers at debug level.
	DumpHeaders bool `yaml:"dump_headers" mapstructure:"dump_headers"`

	// HTTP2 configures the default transport for HTTP/2.
	HTTP2 bool `yaml:"http2" mapstructure:"http2"`

	// TLS configures the default transport. Nil uses system roots.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// RequestIDHeader carries the generated request ID. Defaults to X-Request-ID.
	RequestIDHeader string `yaml:"request_id_header" mapstructure:"request_id_header" validate:"omitempty,header"`

	// MaxConcurrentTransfers bounds simultaneous downloads. Zero means unbounded.
	MaxConcurrentTransfers int `yaml:"max_concurrent_transfers" mapstructure:"max_concurrent_transfers" validate:"gte=0"`

	// TransferWait is how long a download waits for a free slot. Zero
	// rejects immediately when all slots are busy.
	TransferWait time.Duration `yaml:"transfer_wait" mapstructure:"transfer_wait"`

	// Auth configures default authentication applied to all requests.
	// Individual requests can override this.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	// Retry configures retry behavior for Do. Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-"`

	// CircuitBreaker configures circuit breaker behavior. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`

	// RateLimiter configures rate limiting. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "http"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}
	if c.DefaultContentType == "" {
		c.DefaultContentType = defaultContentType
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = transfer.DefaultChunkSize
	}
	if c.RequestIDHeader == "" {
		c.RequestIDHeader = defaultRequestIDHeader
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	v := validation.New().
		HTTPURL("base_url", c.BaseURL).
		Headers("headers", c.Headers).
		Custom(c.Timeout > 0, "timeout", "must be positive").
		Custom(c.TransferWait >= 0, "transfer_wait", "must not be negative")
	if err := v.Validate(); err != nil {
		return err
	}
	if err := c.TLS.Validate(); err != nil {
		return NewValidationError(err.Error())
	}
	return nil
}

// DefaultRetryConfig returns a default retry config suitable for HTTP clients.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

// DefaultCircuitBreakerConfig returns a default circuit breaker config.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}

// DefaultRateLimiterConfig returns a default rate limiter config.
func DefaultRateLimiterConfig(name string) *resilience.RateLimiterConfig {
	cfg := resilience.DefaultRateLimiterConfig(name)
	return &cfg
}
