package billing

import "time"

// Metrics defines the interface for tracking billing provider operations.
// All methods are optional - providers should gracefully handle nil metrics.
type Metrics interface {
	// RecordWebhookEvent records a webhook event that passed authentication.
	// eventType: The type of event (e.g., "charge.success")
	// outcome: The processing outcome (e.g., "granted", "missing_metadata")
	RecordWebhookEvent(provider, eventType, outcome string)

	// RecordWebhookProcessingDuration records how long it took to process a webhook.
	RecordWebhookProcessingDuration(provider, eventType string, duration time.Duration)

	// RecordWebhookError records a webhook rejected before processing.
	// errorType: The type of error (e.g., "missing_signature", "auth_failed", "verification_error")
	RecordWebhookError(provider, errorType string)

	// RecordEntitlementExtension records a premium window granted for a plan.
	RecordEntitlementExtension(provider, plan string, days int)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordWebhookEvent(_, _, _ string)                            {}
func (n *NoopMetrics) RecordWebhookProcessingDuration(_, _ string, _ time.Duration) {}
func (n *NoopMetrics) RecordWebhookError(_, _ string)                               {}
func (n *NoopMetrics) RecordEntitlementExtension(_, _ string, _ int)                {}
