package premium

import "time"

// DefaultPlanName is stored as the current plan when a payment carries no plan name
const DefaultPlanName = "Unknown"

// Entitlement is the persistent premium record of a user.
// PremiumExpiryDate is the source of truth for access; IsPremiumUser is a
// legacy fast-path flag that is never cleared by this module.
type Entitlement struct {
	UserID            string
	IsPremiumUser     bool
	PremiumExpiryDate *time.Time
	LastPaymentRef    string
	LastPaymentDate   *time.Time
	CurrentPlan       string
}

// IsActive reports whether the entitlement window is open at now.
func (e *Entitlement) IsActive(now time.Time) bool {
	if e == nil || e.PremiumExpiryDate == nil {
		return false
	}
	return e.PremiumExpiryDate.After(now)
}

// PaymentUpdate is the merge-style update applied for a successful charge.
// LastPaymentDate is not part of the update: storage assigns its own current time.
type PaymentUpdate struct {
	UserID    string
	ExpiresAt time.Time
	Reference string
	Plan      string
}

// Validate checks the update has the fields every storage needs
func (u *PaymentUpdate) Validate() error {
	if u == nil || u.UserID == "" || u.ExpiresAt.IsZero() {
		return ErrInvalidUpdate
	}
	return nil
}

// PlanOrDefault returns the plan name, or DefaultPlanName when empty
func (u *PaymentUpdate) PlanOrDefault() string {
	if u.Plan == "" {
		return DefaultPlanName
	}
	return u.Plan
}
