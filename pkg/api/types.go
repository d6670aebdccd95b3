package api

import "time"

// StatusResponse represents the premium standing of a user
type StatusResponse struct {
	UserID            string     `json:"userId"`
	Status            string     `json:"status"` // "active", "expired", "none"
	IsPremiumUser     bool       `json:"isPremiumUser"`
	PremiumExpiryDate *time.Time `json:"premiumExpiryDate,omitempty"`
	CurrentPlan       string     `json:"currentPlan,omitempty"`
	LastPaymentRef    string     `json:"lastPaymentRef,omitempty"`
	LastPaymentDate   *time.Time `json:"lastPaymentDate,omitempty"`
}
