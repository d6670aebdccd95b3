package paystack

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaimyh/gopremium/pkg/billing"
	"github.com/mihaimyh/gopremium/pkg/premium"
)

func chargeSuccess(userID, days, plan string) *ChargeSuccess {
	return &ChargeSuccess{
		Reference: "ref_123",
		Amount:    "500000",
		Currency:  "NGN",
		Customer:  Customer{Email: "a@b.com"},
		Metadata:  ChargeMetadata{UserID: userID, DurationDays: days, PlanName: plan},
	}
}

func TestNewReconciler_RequiresStorage(t *testing.T) {
	_, err := NewReconciler(Config{})
	assert.ErrorIs(t, err, billing.ErrProviderNotConfigured)
}

func TestReconcile_Grant(t *testing.T) {
	store, counting := newTestStore("u1")
	logger := &recordingLogger{}
	r, err := NewReconciler(newTestConfig(counting, logger))
	require.NoError(t, err)

	out := r.Reconcile(context.Background(), chargeSuccess("u1", "30", "Pro"))
	require.Equal(t, OutcomeGranted, out.Kind)
	assert.Equal(t, "u1", out.UserID)
	assert.Equal(t, "Pro", out.Plan)
	assert.Equal(t, 30, out.DurationDays)
	assert.True(t, out.ExpiresAt.Equal(fixedNow.AddDate(0, 0, 30)))
	assert.Equal(t, "500000", out.Metadata["amount"])
	assert.NoError(t, out.Err)

	ent, err := store.GetEntitlement(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ent.IsPremiumUser)
	assert.True(t, ent.PremiumExpiryDate.Equal(fixedNow.AddDate(0, 0, 30)))
	assert.Equal(t, "ref_123", ent.LastPaymentRef)
	assert.True(t, ent.LastPaymentDate.Equal(fixedNow))
	assert.Equal(t, "Pro", ent.CurrentPlan)
	assert.Equal(t, 1, counting.writeCount())

	entry, ok := logger.find("info", "granted premium access")
	require.True(t, ok)
	assert.Equal(t, "u1", entry.fields["userId"])
}

func TestReconcile_DefaultPlan(t *testing.T) {
	store, counting := newTestStore("u1")
	r, err := NewReconciler(newTestConfig(counting, nil))
	require.NoError(t, err)

	out := r.Reconcile(context.Background(), chargeSuccess("u1", "7", ""))
	require.Equal(t, OutcomeGranted, out.Kind)
	assert.Equal(t, premium.DefaultPlanName, out.Plan)

	ent, _ := store.GetEntitlement(context.Background(), "u1")
	assert.Equal(t, "Unknown", ent.CurrentPlan)
}

func TestReconcile_ZeroDaysExpiresNow(t *testing.T) {
	store, counting := newTestStore("u1")
	r, _ := NewReconciler(newTestConfig(counting, nil))

	out := r.Reconcile(context.Background(), chargeSuccess("u1", "0", "Trial"))
	require.Equal(t, OutcomeGranted, out.Kind)

	ent, _ := store.GetEntitlement(context.Background(), "u1")
	assert.True(t, ent.PremiumExpiryDate.Equal(fixedNow))
	assert.False(t, ent.IsActive(fixedNow))
}

func TestReconcile_NoStacking(t *testing.T) {
	store, counting := newTestStore()
	future := fixedNow.AddDate(1, 0, 0)
	store.Seed(&premium.Entitlement{UserID: "u1", IsPremiumUser: true, PremiumExpiryDate: &future})
	r, _ := NewReconciler(newTestConfig(counting, nil))

	out := r.Reconcile(context.Background(), chargeSuccess("u1", "30", "Pro"))
	require.Equal(t, OutcomeGranted, out.Kind)

	ent, _ := store.GetEntitlement(context.Background(), "u1")
	assert.True(t, ent.PremiumExpiryDate.Equal(fixedNow.AddDate(0, 0, 30)))
}

func TestReconcile_MissingMetadata(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		days   string
	}{
		{name: "no user", days: "30"},
		{name: "no duration", userID: "u1"},
		{name: "nothing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, counting := newTestStore("u1")
			logger := &recordingLogger{}
			r, _ := NewReconciler(newTestConfig(counting, logger))

			out := r.Reconcile(context.Background(), chargeSuccess(tt.userID, tt.days, "Pro"))
			assert.Equal(t, OutcomeMissingMetadata, out.Kind)
			assert.Equal(t, 0, counting.writeCount())

			ent, _ := store.GetEntitlement(context.Background(), "u1")
			assert.False(t, ent.IsPremiumUser)

			entry, ok := logger.find("error", "missing userId or durationDays in payment metadata")
			require.True(t, ok)
			assert.Equal(t, "a@b.com", entry.fields["email"])
		})
	}
}

func TestReconcile_InvalidDuration(t *testing.T) {
	for _, days := range []string{"-5", "thirty", "1.5", "99999999"} {
		t.Run(days, func(t *testing.T) {
			_, counting := newTestStore("u1")
			logger := &recordingLogger{}
			r, _ := NewReconciler(newTestConfig(counting, logger))

			out := r.Reconcile(context.Background(), chargeSuccess("u1", days, "Pro"))
			assert.Equal(t, OutcomeInvalidMetadata, out.Kind)
			assert.Error(t, out.Err)
			assert.Equal(t, 0, counting.writeCount())

			entry, ok := logger.find("error", "invalid durationDays in payment metadata")
			require.True(t, ok)
			assert.Equal(t, "u1", entry.fields["userId"])
		})
	}
}

func TestReconcile_RecordUpdateFailure(t *testing.T) {
	_, counting := newTestStore("u1")
	counting.applyErr = errStoreDown
	logger := &recordingLogger{}
	r, _ := NewReconciler(newTestConfig(counting, logger))

	out := r.Reconcile(context.Background(), chargeSuccess("u1", "30", "Pro"))
	assert.Equal(t, OutcomeRecordUpdateFailure, out.Kind)
	assert.ErrorIs(t, out.Err, errStoreDown)
	assert.Equal(t, 1, counting.writeCount())

	entry, ok := logger.find("error", "failed to update entitlement record")
	require.True(t, ok)
	assert.Equal(t, "u1", entry.fields["userId"])
}

func TestReconcile_UnknownUser(t *testing.T) {
	_, counting := newTestStore()
	r, _ := NewReconciler(newTestConfig(counting, nil))

	out := r.Reconcile(context.Background(), chargeSuccess("ghost", "30", "Pro"))
	assert.Equal(t, OutcomeRecordUpdateFailure, out.Kind)
	assert.ErrorIs(t, out.Err, premium.ErrUserNotFound)
}

func TestReconcile_WriteTimeout(t *testing.T) {
	_, counting := newTestStore("u1")
	counting.block = true
	config := newTestConfig(counting, nil)
	config.WriteTimeout = 20 * time.Millisecond
	r, _ := NewReconciler(config)

	start := time.Now()
	out := r.Reconcile(context.Background(), chargeSuccess("u1", "30", "Pro"))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, OutcomeRecordUpdateFailure, out.Kind)
	assert.ErrorIs(t, out.Err, premium.ErrStorageUnavailable)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

func TestReconcile_ChargeFailed(t *testing.T) {
	_, counting := newTestStore("u1")
	logger := &recordingLogger{}
	r, _ := NewReconciler(newTestConfig(counting, logger))

	out := r.Reconcile(context.Background(), &ChargeFailed{
		Reference:       "ref_9",
		GatewayResponse: "Declined",
		Customer:        Customer{Email: "a@b.com"},
	})
	assert.Equal(t, OutcomeChargeFailed, out.Kind)
	assert.Equal(t, 0, counting.writeCount())

	entry, ok := logger.find("info", "payment failed")
	require.True(t, ok)
	assert.Equal(t, "a@b.com", entry.fields["email"])
	assert.Equal(t, "Declined", entry.fields["gatewayResponse"])
}

func TestReconcile_UnhandledEvent(t *testing.T) {
	_, counting := newTestStore("u1")
	logger := &recordingLogger{}
	r, _ := NewReconciler(newTestConfig(counting, logger))

	out := r.Reconcile(context.Background(), &UnknownEvent{Name: "subscription.create"})
	assert.Equal(t, OutcomeUnhandledEvent, out.Kind)
	assert.Equal(t, "subscription.create", out.EventType)
	assert.Equal(t, 0, counting.writeCount())

	entry, ok := logger.find("info", "unhandled event type")
	require.True(t, ok)
	assert.Equal(t, "subscription.create", entry.fields["event"])

	assert.Equal(t, OutcomeUnhandledEvent, r.Reconcile(context.Background(), nil).Kind)
}

func TestReconcile_ReplayReExtends(t *testing.T) {
	store, counting := newTestStore("u1")
	now := fixedNow
	config := newTestConfig(counting, nil)
	config.Now = func() time.Time { return now }
	r, _ := NewReconciler(config)

	event := chargeSuccess("u1", "30", "Pro")
	require.Equal(t, OutcomeGranted, r.Reconcile(context.Background(), event).Kind)

	now = fixedNow.AddDate(0, 0, 3)
	require.Equal(t, OutcomeGranted, r.Reconcile(context.Background(), event).Kind)

	ent, _ := store.GetEntitlement(context.Background(), "u1")
	assert.True(t, ent.PremiumExpiryDate.Equal(now.AddDate(0, 0, 30)))
	assert.Equal(t, 2, counting.writeCount())
}

func TestReconcile_SkipReplayedReference(t *testing.T) {
	store, counting := newTestStore("u1")
	config := newTestConfig(counting, nil)
	config.SkipReplayedReference = true
	r, _ := NewReconciler(config)

	event := chargeSuccess("u1", "30", "Pro")
	require.Equal(t, OutcomeGranted, r.Reconcile(context.Background(), event).Kind)
	assert.Equal(t, OutcomeDuplicateReference, r.Reconcile(context.Background(), event).Kind)
	assert.Equal(t, 1, counting.writeCount())

	next := chargeSuccess("u1", "60", "Pro")
	next.Reference = "ref_456"
	require.Equal(t, OutcomeGranted, r.Reconcile(context.Background(), next).Kind)

	ent, _ := store.GetEntitlement(context.Background(), "u1")
	assert.Equal(t, "ref_456", ent.LastPaymentRef)
}

type stubClock struct {
	now time.Time
	err error
}

func (c stubClock) Now(context.Context) (time.Time, error) {
	return c.now, c.err
}

func TestReconcile_ExpiryClock(t *testing.T) {
	store, counting := newTestStore("u1")
	storeTime := fixedNow.Add(90 * time.Second)
	store.SetClock(func() time.Time { return storeTime })

	config := newTestConfig(counting, nil)
	config.ExpiryClock = store
	r, _ := NewReconciler(config)

	out := r.Reconcile(context.Background(), chargeSuccess("u1", "30", "Pro"))
	require.Equal(t, OutcomeGranted, out.Kind)

	ent, _ := store.GetEntitlement(context.Background(), "u1")
	assert.True(t, ent.PremiumExpiryDate.Equal(storeTime.AddDate(0, 0, 30)))
	assert.True(t, ent.LastPaymentDate.Equal(storeTime))
}

func TestReconcile_ExpiryClockFallsBack(t *testing.T) {
	store, counting := newTestStore("u1")
	logger := &recordingLogger{}
	config := newTestConfig(counting, logger)
	config.ExpiryClock = stubClock{err: errStoreDown}
	r, _ := NewReconciler(config)

	out := r.Reconcile(context.Background(), chargeSuccess("u1", "30", "Pro"))
	require.Equal(t, OutcomeGranted, out.Kind)
	assert.True(t, out.ExpiresAt.Equal(fixedNow.AddDate(0, 0, 30)))

	ent, _ := store.GetEntitlement(context.Background(), "u1")
	assert.True(t, ent.PremiumExpiryDate.Equal(fixedNow.AddDate(0, 0, 30)))

	entry, ok := logger.find("warn", "expiry clock unavailable, using local time")
	require.True(t, ok)
	assert.Equal(t, errStoreDown, entry.fields["error"])
}

func TestReconcile_OddSideFieldsStillGrant(t *testing.T) {
	body := `{"event":"charge.success","data":{"reference":"ref_1","amount":"5000","paid_at":1700000000,` +
		`"customer":{"email":"a@b.com","customer_code":7},"metadata":{"userId":"u1","durationDays":"30"}}}`
	event, err := ParseEvent([]byte(body))
	require.NoError(t, err)

	store, counting := newTestStore("u1")
	r, _ := NewReconciler(newTestConfig(counting, nil))

	out := r.Reconcile(context.Background(), event)
	require.Equal(t, OutcomeGranted, out.Kind)
	assert.Equal(t, "5000", out.Metadata["amount"])
	assert.Equal(t, "1700000000", out.Metadata["paid_at"])

	ent, _ := store.GetEntitlement(context.Background(), "u1")
	assert.True(t, ent.IsPremiumUser)
	assert.True(t, ent.PremiumExpiryDate.Equal(fixedNow.AddDate(0, 0, 30)))
}
