package prommetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	return byName
}

func TestMetrics_WebhookEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "test")

	m.RecordWebhookEvent("paystack", "charge.success", "granted")
	m.RecordWebhookEvent("paystack", "charge.success", "granted")
	m.RecordWebhookEvent("paystack", "charge.success", "missing_metadata")
	m.RecordWebhookProcessingDuration("paystack", "charge.success", 15*time.Millisecond)

	families := gather(t, reg)
	events := families["test_billing_webhook_events_total"]
	require.NotNil(t, events)
	assert.Len(t, events.GetMetric(), 2)

	duration := families["test_billing_webhook_processing_duration_seconds"]
	require.NotNil(t, duration)
	assert.Equal(t, uint64(1), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestMetrics_ErrorsAndExtensions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "test")

	m.RecordWebhookError("paystack", "auth_failed")
	m.RecordEntitlementExtension("paystack", "Pro", 30)

	families := gather(t, reg)

	errs := families["test_billing_webhook_errors_total"]
	require.NotNil(t, errs)
	assert.Equal(t, float64(1), errs.GetMetric()[0].GetCounter().GetValue())

	ext := families["test_billing_entitlement_extensions_total"]
	require.NotNil(t, ext)
	labels := map[string]string{}
	for _, lp := range ext.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	assert.Equal(t, map[string]string{"provider": "paystack", "plan": "Pro", "duration_days": "30"}, labels)
}
