package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mihaimyh/gopremium/pkg/premium"
)

// Config holds configuration for the entitlement status handler
type Config struct {
	// Storage is read for the user's entitlement (required)
	Storage premium.Storage

	// GetUserID extracts user ID from HTTP request (required)
	// Similar to middleware/http pattern
	GetUserID func(*http.Request) string

	// Now returns the instant the status is evaluated at. Defaults to time.Now.
	Now func() time.Time

	// OnError handles errors (auth, internal, etc.)
	// If nil, uses default error handling
	OnError func(http.ResponseWriter, *http.Request, error)

	// Metrics is optional metrics recorder for status lookups
	// If nil, metrics are not recorded
	Metrics premium.Metrics
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Storage == nil {
		return fmt.Errorf("storage is required")
	}
	if c.GetUserID == nil {
		return fmt.Errorf("getUserID is required")
	}
	return nil
}

// NewHandler creates a new status handler with the given configuration
func NewHandler(config Config) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Metrics == nil {
		config.Metrics = &premium.NoopMetrics{}
	}
	return &Handler{
		config: config,
	}, nil
}

// Helper functions for common UserID extraction patterns

// FromHeader returns a GetUserID function that extracts user ID from a header
func FromHeader(headerName string) func(*http.Request) string {
	return func(r *http.Request) string {
		return r.Header.Get(headerName)
	}
}

// FromContext returns a GetUserID function that extracts user ID from request context
// Uses the same context key pattern as middleware/http
func FromContext(key interface{}) func(*http.Request) string {
	return func(r *http.Request) string {
		if userID, ok := r.Context().Value(key).(string); ok {
			return userID
		}
		return ""
	}
}
