// Package memory provides an in-memory implementation of the premium.Storage interface.
// This implementation is primarily intended for testing and development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mihaimyh/gopremium/pkg/premium"
)

// Storage implements premium.Storage using an in-memory map
type Storage struct {
	mu      sync.RWMutex
	records map[string]*premium.Entitlement
	now     func() time.Time
}

// New creates a new in-memory storage adapter
func New() *Storage {
	return &Storage{
		records: make(map[string]*premium.Entitlement),
		now:     time.Now,
	}
}

// SetClock replaces the clock used to stamp LastPaymentDate (useful for testing)
func (s *Storage) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Seed creates or replaces a user record. User records are normally created
// by sign-up elsewhere; ApplyPayment only updates existing ones.
func (s *Storage) Seed(ent *premium.Entitlement) {
	if ent == nil || ent.UserID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[ent.UserID] = cloneEntitlement(ent)
}

// GetEntitlement implements premium.Storage
func (s *Storage) GetEntitlement(_ context.Context, userID string) (*premium.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.records[userID]
	if !ok {
		return nil, premium.ErrEntitlementNotFound
	}
	// Return a copy to prevent external mutations
	return cloneEntitlement(ent), nil
}

// ApplyPayment implements premium.Storage
func (s *Storage) ApplyPayment(ctx context.Context, update *premium.PaymentUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.records[update.UserID]
	if !ok {
		return premium.ErrUserNotFound
	}

	expiresAt := update.ExpiresAt
	paidAt := s.now()
	ent.IsPremiumUser = true
	ent.PremiumExpiryDate = &expiresAt
	ent.LastPaymentRef = update.Reference
	ent.LastPaymentDate = &paidAt
	ent.CurrentPlan = update.PlanOrDefault()
	return nil
}

// Now implements premium.TimeSource
func (s *Storage) Now(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now(), nil
}

func cloneEntitlement(ent *premium.Entitlement) *premium.Entitlement {
	c := *ent
	if ent.PremiumExpiryDate != nil {
		t := *ent.PremiumExpiryDate
		c.PremiumExpiryDate = &t
	}
	if ent.LastPaymentDate != nil {
		t := *ent.LastPaymentDate
		c.LastPaymentDate = &t
	}
	return &c
}
