// Package postgres provides a PostgreSQL implementation of the premium.Storage interface.
// Payment updates are a single UPDATE keyed by user ID; the database clock
// stamps last_payment_date.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mihaimyh/gopremium/pkg/premium"
)

// Storage implements premium.Storage using PostgreSQL
type Storage struct {
	pool  *pgxpool.Pool
	table string
}

// Config holds PostgreSQL storage configuration
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// Table holding user records (default: "users")
	Table string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Table:           "users",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a new PostgreSQL storage adapter
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	// Parse connection string
	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	// Apply pool settings
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewWithPool(pool, config.Table), nil
}

// NewWithPool wraps an existing pool. An empty table defaults to "users".
func NewWithPool(pool *pgxpool.Pool, table string) *Storage {
	if table == "" {
		table = DefaultConfig().Table
	}
	return &Storage{
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
	}
}

// Close closes the PostgreSQL connection pool
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the user table if it does not exist
func (s *Storage) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createTableSQL(s.table))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.table, err)
	}
	return nil
}

// GetEntitlement implements premium.Storage
func (s *Storage) GetEntitlement(ctx context.Context, userID string) (*premium.Entitlement, error) {
	ent := premium.Entitlement{UserID: userID}
	var plan, ref *string

	err := s.pool.QueryRow(ctx,
		`SELECT is_premium_user, premium_expiry_date, last_payment_ref, last_payment_date, current_plan
			FROM `+s.table+` WHERE id = $1`,
		userID).Scan(
		&ent.IsPremiumUser,
		&ent.PremiumExpiryDate,
		&ref,
		&ent.LastPaymentDate,
		&plan,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, premium.ErrEntitlementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user record: %w", err)
	}

	if ref != nil {
		ent.LastPaymentRef = *ref
	}
	if plan != nil {
		ent.CurrentPlan = *plan
	}
	return &ent, nil
}

// ApplyPayment implements premium.Storage
func (s *Storage) ApplyPayment(ctx context.Context, update *premium.PaymentUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.table+` SET
			is_premium_user = TRUE,
			premium_expiry_date = $2,
			last_payment_ref = $3,
			last_payment_date = now(),
			current_plan = $4
		WHERE id = $1`,
		update.UserID,
		update.ExpiresAt.UTC(),
		update.Reference,
		update.PlanOrDefault(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return premium.ErrUserNotFound
	}
	return nil
}

// Now implements premium.TimeSource using the database clock
func (s *Storage) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := s.pool.QueryRow(ctx, `SELECT now()`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("failed to read server time: %w", err)
	}
	return now.UTC(), nil
}

// Ping checks the PostgreSQL connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func createTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		id TEXT PRIMARY KEY,
		is_premium_user BOOLEAN NOT NULL DEFAULT FALSE,
		premium_expiry_date TIMESTAMPTZ,
		last_payment_ref TEXT,
		last_payment_date TIMESTAMPTZ,
		current_plan TEXT
	)`
}
