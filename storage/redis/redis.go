// Package redis provides a Redis implementation of the premium.Storage interface.
// Each user record is a hash; payment updates run as a Lua script so the
// existence check and the merge happen atomically on the server.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mihaimyh/gopremium/pkg/premium"
)

// Hash fields of a user record
const (
	FieldIsPremiumUser     = "isPremiumUser"
	FieldPremiumExpiryDate = "premiumExpiryDate"
	FieldLastPaymentRef    = "lastPaymentRef"
	FieldLastPaymentDate   = "lastPaymentDate"
	FieldCurrentPlan       = "currentPlan"
)

// applyPaymentScript merges payment fields into an existing hash and stamps the
// payment with the server clock. Returns 0 when the record does not exist.
var applyPaymentScript = redis.NewScript(`
	local key = KEYS[1]
	if redis.call('EXISTS', key) == 0 then
		return 0
	end

	local now = redis.call('TIME')
	local paidAt = tonumber(now[1]) * 1000 + math.floor(tonumber(now[2]) / 1000)

	redis.call('HSET', key,
		'isPremiumUser', '1',
		'premiumExpiryDate', ARGV[1],
		'lastPaymentRef', ARGV[2],
		'lastPaymentDate', string.format('%.0f', paidAt),
		'currentPlan', ARGV[3])
	return 1
`)

// Storage implements premium.Storage using Redis
type Storage struct {
	client redis.UniversalClient
	config Config
}

// Config holds Redis storage configuration
type Config struct {
	// KeyPrefix is prepended to all Redis keys (default: "gopremium:")
	KeyPrefix string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "gopremium:",
	}
}

// New creates a new Redis storage adapter
// The client can be *redis.Client, *redis.ClusterClient, or *redis.Ring
func New(client redis.UniversalClient, config Config) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultConfig().KeyPrefix
	}

	return &Storage{
		client: client,
		config: config,
	}, nil
}

// GetEntitlement implements premium.Storage
func (s *Storage) GetEntitlement(ctx context.Context, userID string) (*premium.Entitlement, error) {
	data, err := s.client.HGetAll(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user record: %w", err)
	}
	if len(data) == 0 {
		return nil, premium.ErrEntitlementNotFound
	}
	return entitlementFromHash(userID, data)
}

// ApplyPayment implements premium.Storage
func (s *Storage) ApplyPayment(ctx context.Context, update *premium.PaymentUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	applied, err := applyPaymentScript.Run(
		ctx,
		s.client,
		[]string{s.userKey(update.UserID)},
		strconv.FormatInt(update.ExpiresAt.UnixMilli(), 10),
		update.Reference,
		update.PlanOrDefault(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to execute apply payment script: %w", err)
	}
	if applied == 0 {
		return premium.ErrUserNotFound
	}
	return nil
}

// CreateUser creates an empty user record if none exists.
// Records are normally created at sign-up; ApplyPayment never creates them.
func (s *Storage) CreateUser(ctx context.Context, userID string) error {
	if userID == "" {
		return premium.ErrInvalidUpdate
	}
	if err := s.client.HSetNX(ctx, s.userKey(userID), FieldIsPremiumUser, "0").Err(); err != nil {
		return fmt.Errorf("failed to create user record: %w", err)
	}
	return nil
}

// Now implements premium.TimeSource using the Redis TIME command
func (s *Storage) Now(ctx context.Context) (time.Time, error) {
	t, err := s.client.Time(ctx).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read server time: %w", err)
	}
	return t.UTC(), nil
}

// Close closes the Redis client connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Storage) userKey(userID string) string {
	return s.config.KeyPrefix + "user:" + userID
}

func entitlementFromHash(userID string, data map[string]string) (*premium.Entitlement, error) {
	ent := &premium.Entitlement{
		UserID:         userID,
		IsPremiumUser:  data[FieldIsPremiumUser] == "1",
		LastPaymentRef: data[FieldLastPaymentRef],
		CurrentPlan:    data[FieldCurrentPlan],
	}

	expiry, err := parseMillis(data[FieldPremiumExpiryDate])
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FieldPremiumExpiryDate, err)
	}
	ent.PremiumExpiryDate = expiry

	paid, err := parseMillis(data[FieldLastPaymentDate])
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FieldLastPaymentDate, err)
	}
	ent.LastPaymentDate = paid

	return ent, nil
}

// parseMillis reads a Unix millisecond timestamp; empty means unset
func parseMillis(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, err
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}
