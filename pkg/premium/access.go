package premium

import (
	"context"
	"errors"
	"time"
)

// Status summarises an entitlement at a point in time
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusNone    Status = "none"
)

// StatusAt returns the status of ent at now. A nil entitlement or one that
// was never paid for is StatusNone.
func StatusAt(ent *Entitlement, now time.Time) Status {
	switch {
	case ent.IsActive(now):
		return StatusActive
	case ent == nil || ent.PremiumExpiryDate == nil:
		return StatusNone
	default:
		return StatusExpired
	}
}

// CheckAccess loads the user's entitlement and returns ErrPremiumRequired
// unless its window is open at now. The entitlement is returned whenever it
// could be loaded, including when access is denied.
func CheckAccess(ctx context.Context, storage Storage, userID string, now time.Time) (*Entitlement, error) {
	ent, err := storage.GetEntitlement(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrEntitlementNotFound) {
			return nil, ErrPremiumRequired
		}
		return nil, err
	}
	if !ent.IsActive(now) {
		return ent, ErrPremiumRequired
	}
	return ent, nil
}
