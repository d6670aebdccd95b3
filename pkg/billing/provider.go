package billing

import (
	"net/http"
)

// Provider is the interface a payment gateway integration exposes to the host application.
type Provider interface {
	// Name returns the provider name (e.g., "paystack")
	Name() string

	// WebhookHandler returns the HTTP handler that processes real-time events.
	// The implementation handles verification, parsing, and entitlement updates internally.
	WebhookHandler() http.Handler
}
