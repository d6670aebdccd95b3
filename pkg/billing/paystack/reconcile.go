package paystack

import (
	"context"
	"errors"
	"time"

	"github.com/mihaimyh/gopremium/pkg/premium"
)

// maxDurationDays caps a single extension at 100 years
const maxDurationDays = 36525

// OutcomeKind classifies what processing an authenticated event did.
// Every kind is acknowledged to Paystack with 200.
type OutcomeKind string

const (
	OutcomeGranted             OutcomeKind = "granted"
	OutcomeMissingMetadata     OutcomeKind = "missing_metadata"
	OutcomeInvalidMetadata     OutcomeKind = "invalid_metadata"
	OutcomeRecordUpdateFailure OutcomeKind = "record_update_failure"
	OutcomeDuplicateReference  OutcomeKind = "duplicate_reference"
	OutcomeChargeFailed        OutcomeKind = "charge_failed"
	OutcomeUnhandledEvent      OutcomeKind = "unhandled_event"
	OutcomeInvalidPayload      OutcomeKind = "invalid_payload"
)

// Outcome is the result of reconciling one event
type Outcome struct {
	Kind         OutcomeKind
	EventType    string
	UserID       string
	Email        string
	Reference    string
	Plan         string
	DurationDays int
	ExpiresAt    time.Time
	Err          error

	// Metadata carries charge details for granted outcomes
	Metadata map[string]interface{}
}

// Reconciler turns verified Paystack events into entitlement updates.
// It holds no per-request state and is safe for concurrent use.
type Reconciler struct {
	storage      premium.Storage
	logger       premium.Logger
	now          func() time.Time
	clock        premium.TimeSource
	writeTimeout time.Duration
	skipReplayed bool
}

// NewReconciler creates a reconciler writing to config.Storage
func NewReconciler(config Config) (*Reconciler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	base := config.WithDefaults()
	return &Reconciler{
		storage:      base.Storage,
		logger:       base.Logger,
		now:          base.Now,
		clock:        config.ExpiryClock,
		writeTimeout: base.WriteTimeout,
		skipReplayed: config.SkipReplayedReference,
	}, nil
}

// Reconcile applies event and reports what happened. Failures are logged
// and returned in the Outcome, never as an error.
func (r *Reconciler) Reconcile(ctx context.Context, event Event) Outcome {
	switch e := event.(type) {
	case *ChargeSuccess:
		return r.extend(ctx, e)
	case *ChargeFailed:
		r.logger.Info("payment failed",
			premium.Field{Key: "email", Value: e.Customer.Email},
			premium.Field{Key: "gatewayResponse", Value: e.GatewayResponse},
			premium.Field{Key: "reference", Value: e.Reference},
		)
		return Outcome{
			Kind:      OutcomeChargeFailed,
			EventType: EventChargeFailed,
			Email:     e.Customer.Email,
			Reference: e.Reference,
		}
	default:
		eventType := ""
		if event != nil {
			eventType = event.Type()
		}
		r.logger.Info("unhandled event type", premium.Field{Key: "event", Value: eventType})
		return Outcome{Kind: OutcomeUnhandledEvent, EventType: eventType}
	}
}

func (r *Reconciler) extend(ctx context.Context, e *ChargeSuccess) Outcome {
	out := Outcome{
		EventType: EventChargeSuccess,
		UserID:    e.Metadata.UserID,
		Email:     e.Customer.Email,
		Reference: e.Reference,
	}

	if e.Metadata.UserID == "" || e.Metadata.DurationDays == "" {
		r.logger.Error("missing userId or durationDays in payment metadata",
			premium.Field{Key: "email", Value: e.Customer.Email},
			premium.Field{Key: "reference", Value: e.Reference},
		)
		out.Kind = OutcomeMissingMetadata
		return out
	}

	days, err := parseDurationDays(e.Metadata.DurationDays)
	if err != nil {
		r.logger.Error("invalid durationDays in payment metadata",
			premium.Field{Key: "userId", Value: e.Metadata.UserID},
			premium.Field{Key: "reference", Value: e.Reference},
			premium.Field{Key: "error", Value: err},
		)
		out.Kind = OutcomeInvalidMetadata
		out.Err = err
		return out
	}

	writeCtx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	update := &premium.PaymentUpdate{
		UserID:    e.Metadata.UserID,
		ExpiresAt: r.currentTime(writeCtx).AddDate(0, 0, days),
		Reference: e.Reference,
		Plan:      e.Metadata.PlanName,
	}
	out.Plan = update.PlanOrDefault()
	out.DurationDays = days
	out.ExpiresAt = update.ExpiresAt

	if r.skipReplayed && r.alreadyApplied(writeCtx, update) {
		r.logger.Info("payment reference already applied",
			premium.Field{Key: "userId", Value: update.UserID},
			premium.Field{Key: "reference", Value: update.Reference},
		)
		out.Kind = OutcomeDuplicateReference
		return out
	}

	if err := r.storage.ApplyPayment(writeCtx, update); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(premium.ErrStorageUnavailable, err)
		}
		r.logger.Error("failed to update entitlement record",
			premium.Field{Key: "userId", Value: update.UserID},
			premium.Field{Key: "reference", Value: update.Reference},
			premium.Field{Key: "error", Value: err},
		)
		out.Kind = OutcomeRecordUpdateFailure
		out.Err = err
		return out
	}

	r.logger.Info("granted premium access",
		premium.Field{Key: "email", Value: e.Customer.Email},
		premium.Field{Key: "userId", Value: update.UserID},
		premium.Field{Key: "plan", Value: out.Plan},
		premium.Field{Key: "expiresAt", Value: update.ExpiresAt.UTC().Format(time.RFC3339)},
	)
	out.Kind = OutcomeGranted
	out.Metadata = map[string]interface{}{
		"amount":   e.Amount,
		"currency": e.Currency,
		"channel":  e.Channel,
		"paid_at":  e.PaidAt,
	}
	return out
}

// currentTime is the instant an extension starts from
func (r *Reconciler) currentTime(ctx context.Context) time.Time {
	if r.clock == nil {
		return r.now()
	}
	t, err := r.clock.Now(ctx)
	if err != nil {
		r.logger.Warn("expiry clock unavailable, using local time", premium.Field{Key: "error", Value: err})
		return r.now()
	}
	return t
}

// alreadyApplied reports whether the record's last payment is this reference.
// Read errors fall through to the write, which reports them.
func (r *Reconciler) alreadyApplied(ctx context.Context, update *premium.PaymentUpdate) bool {
	if update.Reference == "" {
		return false
	}
	existing, err := r.storage.GetEntitlement(ctx, update.UserID)
	if err != nil || existing == nil {
		return false
	}
	return existing.LastPaymentRef == update.Reference
}
