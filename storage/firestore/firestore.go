// Package firestore provides a Firestore implementation of the premium.Storage interface.
// User records live in a single collection keyed by user ID, as written by the
// application's sign-up flow; this adapter only merges payment fields into them.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mihaimyh/gopremium/pkg/premium"
)

// Field names of the user document
const (
	FieldIsPremiumUser     = "isPremiumUser"
	FieldPremiumExpiryDate = "premiumExpiryDate"
	FieldLastPaymentRef    = "lastPaymentRef"
	FieldLastPaymentDate   = "lastPaymentDate"
	FieldCurrentPlan       = "currentPlan"
)

// Storage implements premium.Storage using Google Cloud Firestore
type Storage struct {
	client          *firestore.Client
	usersCollection string
	clockCollection string
}

// Config holds Firestore storage configuration
type Config struct {
	// UsersCollection is the Firestore collection holding user records
	// Default: "users"
	UsersCollection string

	// ClockCollection holds the single document written to read server time
	// Default: "_server_clock"
	ClockCollection string
}

// DefaultConfig returns the default collection layout
func DefaultConfig() Config {
	return Config{
		UsersCollection: "users",
		ClockCollection: "_server_clock",
	}
}

// New creates a new Firestore storage adapter
func New(client *firestore.Client, config Config) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}

	defaults := DefaultConfig()
	if config.UsersCollection == "" {
		config.UsersCollection = defaults.UsersCollection
	}
	if config.ClockCollection == "" {
		config.ClockCollection = defaults.ClockCollection
	}

	return &Storage{
		client:          client,
		usersCollection: config.UsersCollection,
		clockCollection: config.ClockCollection,
	}, nil
}

// GetEntitlement implements premium.Storage
func (s *Storage) GetEntitlement(ctx context.Context, userID string) (*premium.Entitlement, error) {
	snap, err := s.client.Collection(s.usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, premium.ErrEntitlementNotFound
		}
		return nil, fmt.Errorf("failed to get user record: %w", err)
	}
	if !snap.Exists() {
		return nil, premium.ErrEntitlementNotFound
	}
	return entitlementFromData(userID, snap.Data()), nil
}

// ApplyPayment implements premium.Storage.
// DocumentRef.Update fails with NotFound for a missing document, so a
// payment for an unknown user never creates a record.
func (s *Storage) ApplyPayment(ctx context.Context, update *premium.PaymentUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	doc := s.client.Collection(s.usersCollection).Doc(update.UserID)
	_, err := doc.Update(ctx, paymentUpdates(update))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return premium.ErrUserNotFound
		}
		return fmt.Errorf("failed to update user record: %w", err)
	}
	return nil
}

// Now implements premium.TimeSource using the commit time of a server-side write.
// Every call writes the same clock document, so it suits webhook rates, not
// per-request use on hot paths.
func (s *Storage) Now(ctx context.Context) (time.Time, error) {
	res, err := s.client.Collection(s.clockCollection).Doc("now").
		Set(ctx, map[string]interface{}{"at": firestore.ServerTimestamp})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read server time: %w", err)
	}
	return res.UpdateTime.UTC(), nil
}

func paymentUpdates(update *premium.PaymentUpdate) []firestore.Update {
	return []firestore.Update{
		{Path: FieldIsPremiumUser, Value: true},
		{Path: FieldPremiumExpiryDate, Value: update.ExpiresAt.UTC()},
		{Path: FieldLastPaymentRef, Value: update.Reference},
		{Path: FieldLastPaymentDate, Value: firestore.ServerTimestamp},
		{Path: FieldCurrentPlan, Value: update.PlanOrDefault()},
	}
}

func entitlementFromData(userID string, data map[string]interface{}) *premium.Entitlement {
	ent := &premium.Entitlement{
		UserID:         userID,
		IsPremiumUser:  getBool(data, FieldIsPremiumUser),
		LastPaymentRef: getString(data, FieldLastPaymentRef),
		CurrentPlan:    getString(data, FieldCurrentPlan),
	}
	if t := getTime(data, FieldPremiumExpiryDate); !t.IsZero() {
		ent.PremiumExpiryDate = &t
	}
	if t := getTime(data, FieldLastPaymentDate); !t.IsZero() {
		ent.LastPaymentDate = &t
	}
	return ent
}

// Helper functions for type conversion from Firestore data

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func getBool(data map[string]interface{}, key string) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}

func getTime(data map[string]interface{}, key string) time.Time {
	if v, ok := data[key].(time.Time); ok {
		return v
	}
	return time.Time{}
}
