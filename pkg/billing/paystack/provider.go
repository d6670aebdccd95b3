// Package paystack receives Paystack webhooks and extends premium
// entitlements for successful charges.
package paystack

import (
	"context"
	"net/http"
	"time"

	"github.com/mihaimyh/gopremium/pkg/billing"
	"github.com/mihaimyh/gopremium/pkg/billing/internal"
	"github.com/mihaimyh/gopremium/pkg/premium"
)

const providerName = "paystack"

// Config holds Paystack provider configuration
type Config struct {
	billing.Config

	// SkipReplayedReference skips a charge.success whose reference is already
	// the record's lastPaymentRef. Off by default: a redelivered event then
	// re-extends the entitlement from the redelivery time.
	SkipReplayedReference bool

	// ExpiryClock, when set, supplies the instant expiries are computed from,
	// usually the store itself so expiry and lastPaymentDate share a clock.
	// If it fails the reconciler falls back to Now.
	ExpiryClock premium.TimeSource
}

// Provider implements billing.Provider for Paystack
type Provider struct {
	reconciler   *Reconciler
	secret       billing.SecretSource
	logger       premium.Logger
	metrics      billing.Metrics
	callback     func(ctx context.Context, event billing.WebhookEvent) error
	maxBodyBytes int64
	rateLimiter  *internal.RateLimiter

	callbackTimeout time.Duration
}

// NewProvider creates a new Paystack billing provider
func NewProvider(config Config) (*Provider, error) {
	reconciler, err := NewReconciler(config)
	if err != nil {
		return nil, err
	}
	base := config.WithDefaults()

	var limiter *internal.RateLimiter
	if base.RateLimitRequests > 0 {
		limiter = internal.NewRateLimiter(base.RateLimitRequests, base.RateLimitWindow)
	}

	return &Provider{
		reconciler:   reconciler,
		secret:       base.Secret,
		logger:       base.Logger,
		metrics:      base.Metrics,
		callback:     base.WebhookCallback,
		maxBodyBytes: base.MaxBodyBytes,
		rateLimiter:  limiter,

		callbackTimeout: base.WriteTimeout,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

// WebhookHandler returns the HTTP handler for Paystack webhooks
func (p *Provider) WebhookHandler() http.Handler {
	handler := http.HandlerFunc(p.handleWebhook)
	if p.rateLimiter == nil {
		return handler
	}
	return p.rateLimiter.Middleware(handler)
}

// Reconciler exposes the reconciler for callers that receive events by other means
func (p *Provider) Reconciler() *Reconciler {
	return p.reconciler
}

var _ billing.Provider = (*Provider)(nil)
