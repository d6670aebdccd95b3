package billing

import "time"

// WebhookEvent contains information about a successful webhook processing event.
// This event is passed to the WebhookCallback after the entitlement has been
// successfully updated in storage.
type WebhookEvent struct {
	// UserID is the internal user identifier
	UserID string

	// Provider is the billing provider name ("paystack")
	Provider string

	// EventType is the provider-specific event type, e.g. "charge.success"
	EventType string

	// Reference is the provider transaction reference
	Reference string

	// Email is the paying customer's email as reported by the provider
	Email string

	// Plan is the plan name stored on the record
	Plan string

	// DurationDays is the entitlement extension that was applied
	DurationDays int

	// ExpiresAt is the new premium expiry date
	ExpiresAt time.Time

	// Metadata contains provider-specific additional data
	// Paystack: amount, currency, channel, paid_at
	Metadata map[string]interface{}
}
