package premium

import (
	"context"
	"time"
)

// CircuitBreakerStorage wraps a Storage implementation with circuit breaker protection.
type CircuitBreakerStorage struct {
	storage Storage
	cb      CircuitBreaker
}

// NewCircuitBreakerStorage creates a new storage wrapper with circuit breaker.
func NewCircuitBreakerStorage(storage Storage, cb CircuitBreaker) *CircuitBreakerStorage {
	return &CircuitBreakerStorage{
		storage: storage,
		cb:      cb,
	}
}

func (s *CircuitBreakerStorage) GetEntitlement(ctx context.Context, userID string) (*Entitlement, error) {
	var ent *Entitlement
	err := s.cb.Execute(ctx, func() error {
		var e error
		ent, e = s.storage.GetEntitlement(ctx, userID)
		return e
	})
	return ent, err
}

func (s *CircuitBreakerStorage) ApplyPayment(ctx context.Context, update *PaymentUpdate) error {
	return s.cb.Execute(ctx, func() error {
		return s.storage.ApplyPayment(ctx, update)
	})
}

// InstrumentedStorage records the duration and result of every storage call.
type InstrumentedStorage struct {
	storage Storage
	metrics Metrics
}

// NewInstrumentedStorage wraps storage so each call is reported to metrics.
// A nil metrics falls back to NoopMetrics.
func NewInstrumentedStorage(storage Storage, metrics Metrics) *InstrumentedStorage {
	if metrics == nil {
		metrics = &NoopMetrics{}
	}
	return &InstrumentedStorage{storage: storage, metrics: metrics}
}

func (s *InstrumentedStorage) GetEntitlement(ctx context.Context, userID string) (*Entitlement, error) {
	start := time.Now()
	ent, err := s.storage.GetEntitlement(ctx, userID)
	s.metrics.RecordStorageOperation("get_entitlement", time.Since(start), err)
	return ent, err
}

func (s *InstrumentedStorage) ApplyPayment(ctx context.Context, update *PaymentUpdate) error {
	start := time.Now()
	err := s.storage.ApplyPayment(ctx, update)
	s.metrics.RecordStorageOperation("apply_payment", time.Since(start), err)
	return err
}
