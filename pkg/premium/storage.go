package premium

import (
	"context"
	"time"
)

// Storage defines the interface for user entitlement persistence
type Storage interface {
	// GetEntitlement retrieves the entitlement record for a user.
	// Returns ErrEntitlementNotFound when the user has no record.
	GetEntitlement(ctx context.Context, userID string) (*Entitlement, error)

	// ApplyPayment merges a successful payment into an existing user record.
	// Fields other than the premium fields are left untouched, and
	// LastPaymentDate is set to the storage's own current time.
	// Returns ErrUserNotFound if no record exists for update.UserID; the
	// record is never created.
	ApplyPayment(ctx context.Context, update *PaymentUpdate) error
}

// TimeSource defines an interface for getting time from the storage engine.
// Every bundled storage implements it; pass one as paystack.Config.ExpiryClock
// to compute expiries against the clock that stamps LastPaymentDate.
type TimeSource interface {
	Now(ctx context.Context) (time.Time, error)
}
