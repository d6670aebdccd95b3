package billing

import (
	"context"
	"time"

	"github.com/mihaimyh/gopremium/pkg/premium"
)

const (
	// DefaultWriteTimeout bounds a single entitlement write
	DefaultWriteTimeout = 10 * time.Second

	// DefaultMaxBodyBytes is the largest webhook body accepted
	DefaultMaxBodyBytes = 256 * 1024

	// DefaultRateLimitWindow applies when RateLimitRequests is set without a window
	DefaultRateLimitWindow = time.Minute
)

// Config defines the standard configuration all providers should accept
type Config struct {
	// Storage is the user entitlement store updated by verified payments (required)
	Storage premium.Storage

	// Secret resolves the shared webhook signing secret at request time (required).
	// Use StaticSecret, EnvSecret, or a SecretFunc backed by a secret manager.
	Secret SecretSource

	// Logger receives processing outcomes (grants, metadata problems, write failures).
	// If nil, logs are discarded.
	Logger premium.Logger

	// Metrics is an optional metrics collector for tracking webhook processing.
	// If nil, metrics will be silently ignored (no-op).
	// Use billing/metrics/prometheus.DefaultMetrics(namespace) for Prometheus metrics.
	Metrics Metrics

	// WebhookCallback is invoked after an entitlement was extended.
	// Errors are logged and never change the webhook response.
	WebhookCallback func(ctx context.Context, event WebhookEvent) error

	// Now returns the reference instant for expiry calculation. Defaults to time.Now.
	Now func() time.Time

	// WriteTimeout bounds a single storage write, and the WebhookCallback, so
	// a stalled dependency is reported as a failure instead of holding the
	// request. Default: 10s.
	WriteTimeout time.Duration

	// MaxBodyBytes limits the webhook body size. Default: 256KB.
	MaxBodyBytes int64

	// RateLimitRequests per RateLimitWindow per client IP. Zero or negative
	// (the default) disables rate limiting; Paystack delivers from a small set
	// of addresses, so size any limit for its bursts. Window default: 1 minute.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// WithDefaults returns a copy of the config with unset optional fields filled in
func (c Config) WithDefaults() Config {
	if c.Logger == nil {
		c.Logger = &premium.NoopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = &NoopMetrics{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = DefaultRateLimitWindow
	}
	return c
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Storage == nil {
		return ErrProviderNotConfigured
	}
	return nil
}
