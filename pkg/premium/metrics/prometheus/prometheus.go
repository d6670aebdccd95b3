// Package prommetrics provides Prometheus metrics for entitlement storage.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mihaimyh/gopremium/pkg/premium"
)

// Metrics implements premium.Metrics using Prometheus.
type Metrics struct {
	storageOperationsTotal   *prometheus.CounterVec
	storageOperationDuration *prometheus.HistogramVec
	circuitBreakerState      *prometheus.GaugeVec
}

// NewMetrics creates a new Prometheus metrics implementation.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		storageOperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "premium",
			Name:      "storage_operations_total",
			Help:      "Total number of entitlement storage operations.",
		}, []string{"operation", "status"}),

		storageOperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "premium",
			Name:      "storage_operation_duration_seconds",
			Help:      "Duration of entitlement storage operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		circuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "premium",
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (1 for the active state).",
		}, []string{"state"}),
	}
}

func (m *Metrics) RecordStorageOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.storageOperationsTotal.WithLabelValues(operation, status).Inc()
	m.storageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordCircuitBreakerStateChange(state string) {
	for _, s := range []premium.CircuitBreakerState{premium.StateClosed, premium.StateOpen, premium.StateHalfOpen} {
		value := 0.0
		if string(s) == state {
			value = 1
		}
		m.circuitBreakerState.WithLabelValues(string(s)).Set(value)
	}
}

// DefaultMetrics returns a Metrics implementation using the default Prometheus registerer.
func DefaultMetrics(namespace string) premium.Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, namespace)
}
