package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaimyh/gopremium/pkg/premium"
)

// setupTestRedis creates a Redis client for testing
// Requires Redis running on localhost:6379
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use DB 15 for testing
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	// Clear test database
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test database: %v", err)
	}

	return client
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		client     redis.UniversalClient
		config     Config
		wantErr    bool
		wantPrefix string
	}{
		{
			name:    "nil client",
			client:  nil,
			config:  DefaultConfig(),
			wantErr: true,
		},
		{
			name:       "default prefix",
			client:     redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
			config:     Config{},
			wantPrefix: "gopremium:",
		},
		{
			name:       "custom prefix",
			client:     redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
			config:     Config{KeyPrefix: "test:"},
			wantPrefix: "test:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := New(tt.client, tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrefix+"user:u1", storage.userKey("u1"))
		})
	}
}

func TestEntitlementFromHash(t *testing.T) {
	ent, err := entitlementFromHash("u1", map[string]string{
		FieldIsPremiumUser:     "1",
		FieldPremiumExpiryDate: "1780272000000",
		FieldLastPaymentRef:    "ref_1",
		FieldLastPaymentDate:   "1777680000000",
		FieldCurrentPlan:       "Pro",
	})
	require.NoError(t, err)

	assert.True(t, ent.IsPremiumUser)
	require.NotNil(t, ent.PremiumExpiryDate)
	assert.Equal(t, int64(1780272000000), ent.PremiumExpiryDate.UnixMilli())
	require.NotNil(t, ent.LastPaymentDate)
	assert.Equal(t, time.UTC, ent.LastPaymentDate.Location())
	assert.Equal(t, "ref_1", ent.LastPaymentRef)
	assert.Equal(t, "Pro", ent.CurrentPlan)

	fresh, err := entitlementFromHash("u2", map[string]string{FieldIsPremiumUser: "0"})
	require.NoError(t, err)
	assert.False(t, fresh.IsPremiumUser)
	assert.Nil(t, fresh.PremiumExpiryDate)

	_, err = entitlementFromHash("u3", map[string]string{FieldPremiumExpiryDate: "soon"})
	assert.Error(t, err)
}

func TestRedis_ApplyPayment(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	storage, err := New(client, DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, storage.CreateUser(ctx, "u1"))
	require.NoError(t, client.HSet(ctx, storage.userKey("u1"), "email", "a@b.com").Err())

	expiresAt := time.Now().UTC().AddDate(0, 0, 30).Truncate(time.Millisecond)
	err = storage.ApplyPayment(ctx, &premium.PaymentUpdate{
		UserID:    "u1",
		ExpiresAt: expiresAt,
		Reference: "ref_1",
	})
	require.NoError(t, err)

	ent, err := storage.GetEntitlement(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ent.IsPremiumUser)
	assert.True(t, expiresAt.Equal(*ent.PremiumExpiryDate))
	assert.Equal(t, "ref_1", ent.LastPaymentRef)
	assert.Equal(t, premium.DefaultPlanName, ent.CurrentPlan)
	require.NotNil(t, ent.LastPaymentDate)
	assert.WithinDuration(t, time.Now(), *ent.LastPaymentDate, 5*time.Second)

	email, err := client.HGet(ctx, storage.userKey("u1"), "email").Result()
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)
}

func TestRedis_ApplyPayment_UnknownUser(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	storage, err := New(client, DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()

	err = storage.ApplyPayment(ctx, &premium.PaymentUpdate{UserID: "ghost", ExpiresAt: time.Now()})
	assert.ErrorIs(t, err, premium.ErrUserNotFound)

	exists, err := client.Exists(ctx, storage.userKey("ghost")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)

	_, err = storage.GetEntitlement(ctx, "ghost")
	assert.ErrorIs(t, err, premium.ErrEntitlementNotFound)
}

func TestRedis_ApplyPayment_InvalidUpdate(t *testing.T) {
	storage, err := New(redis.NewClient(&redis.Options{Addr: "localhost:6379"}), DefaultConfig())
	require.NoError(t, err)

	err = storage.ApplyPayment(context.Background(), &premium.PaymentUpdate{UserID: "u1"})
	assert.ErrorIs(t, err, premium.ErrInvalidUpdate)
}

func TestRedis_Now(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	storage, err := New(client, DefaultConfig())
	require.NoError(t, err)

	serverTime, err := storage.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.UTC, serverTime.Location())
	assert.WithinDuration(t, time.Now(), serverTime, 5*time.Second)
}
