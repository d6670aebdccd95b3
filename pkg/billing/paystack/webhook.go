package paystack

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mihaimyh/gopremium/pkg/billing"
	"github.com/mihaimyh/gopremium/pkg/billing/internal"
	"github.com/mihaimyh/gopremium/pkg/premium"
)

const ackMessage = "Event received successfully."

// handleWebhook authenticates the request and reconciles the event.
// Only authentication problems change the status code; everything after a
// valid signature is acknowledged with 200 so Paystack does not retry for
// application-side failures.
func (p *Provider) handleWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	internal.SetSecurityHeaders(w)

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if p.secret == nil {
		http.Error(w, "webhook not configured", http.StatusServiceUnavailable)
		p.metrics.RecordWebhookError(providerName, "not_configured")
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		p.logger.Warn("no paystack signature in header", premium.Field{Key: "remoteIP", Value: internal.GetClientIP(r)})
		http.Error(w, "Bad Request: Missing signature", http.StatusBadRequest)
		p.metrics.RecordWebhookError(providerName, "missing_signature")
		return
	}

	// The signature covers these exact bytes; decode only after verifying.
	// An empty body is still verified and fails like any other mismatch.
	body, err := internal.ReadBodyStrict(w, r, p.maxBodyBytes)
	if errors.Is(err, internal.ErrEmptyBody) {
		body, err = []byte{}, nil
	}
	if err != nil {
		if errors.Is(err, internal.ErrPayloadTooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			p.metrics.RecordWebhookError(providerName, "payload_too_large")
		} else {
			http.Error(w, "Bad Request: unreadable body", http.StatusBadRequest)
			p.metrics.RecordWebhookError(providerName, "invalid_payload")
		}
		return
	}

	if !p.authenticate(w, r, body, signature) {
		return
	}

	// A client disconnect must not abort a write half way; the reconciler
	// bounds it with its own timeout.
	ctx := context.WithoutCancel(r.Context())

	var outcome Outcome
	event, err := ParseEvent(body)
	if err != nil {
		p.logger.Error("invalid webhook payload", premium.Field{Key: "error", Value: err})
		outcome = Outcome{Kind: OutcomeInvalidPayload, Err: err}
	} else {
		p.logger.Info("received paystack event", premium.Field{Key: "event", Value: event.Type()})
		outcome = p.reconciler.Reconcile(ctx, event)
	}
	p.report(ctx, outcome)

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(ackMessage)); err != nil {
		return
	}

	eventLabel := metricEventType(outcome.EventType)
	p.metrics.RecordWebhookEvent(providerName, eventLabel, string(outcome.Kind))
	p.metrics.RecordWebhookProcessingDuration(providerName, eventLabel, time.Since(startTime))
}

// authenticate verifies the signature and writes the rejection response
// when it fails: 401 for a mismatch, 500 when verification itself errors.
func (p *Provider) authenticate(w http.ResponseWriter, r *http.Request, body []byte, signature string) bool {
	secret, err := p.secret.WebhookSecret(r.Context())
	if err != nil {
		p.logger.Error("error verifying signature", premium.Field{Key: "error", Value: err})
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		p.metrics.RecordWebhookError(providerName, "verification_error")
		return false
	}

	valid, err := Verify(body, signature, secret)
	if err != nil {
		p.logger.Error("error verifying signature", premium.Field{Key: "error", Value: err})
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		p.metrics.RecordWebhookError(providerName, "verification_error")
		return false
	}
	if !valid {
		p.logger.Warn("invalid paystack signature", premium.Field{Key: "error", Value: ErrInvalidSignature})
		http.Error(w, "Unauthorized: Invalid signature", http.StatusUnauthorized)
		p.metrics.RecordWebhookError(providerName, "auth_failed")
		return false
	}
	return true
}

// report forwards a grant to metrics and the webhook callback. The callback
// gets the same budget as a store write so it cannot hold the acknowledgement.
func (p *Provider) report(ctx context.Context, outcome Outcome) {
	if outcome.Kind != OutcomeGranted {
		return
	}
	p.metrics.RecordEntitlementExtension(providerName, outcome.Plan, outcome.DurationDays)

	if p.callback == nil {
		return
	}
	event := billing.WebhookEvent{
		UserID:       outcome.UserID,
		Provider:     providerName,
		EventType:    outcome.EventType,
		Reference:    outcome.Reference,
		Email:        outcome.Email,
		Plan:         outcome.Plan,
		DurationDays: outcome.DurationDays,
		ExpiresAt:    outcome.ExpiresAt,
		Metadata:     outcome.Metadata,
	}
	callbackCtx, cancel := context.WithTimeout(ctx, p.callbackTimeout)
	defer cancel()
	if err := p.callback(callbackCtx, event); err != nil {
		p.logger.Warn("webhook callback failed",
			premium.Field{Key: "userId", Value: outcome.UserID},
			premium.Field{Key: "error", Value: err},
		)
	}
}

// metricEventType keeps label cardinality bounded for arbitrary event names
func metricEventType(eventType string) string {
	switch eventType {
	case EventChargeSuccess, EventChargeFailed:
		return eventType
	case "":
		return "unknown"
	default:
		return "other"
	}
}
