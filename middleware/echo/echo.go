// Package echo provides Echo middleware for premium gating and the Paystack webhook route
package echo

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mihaimyh/gopremium/pkg/billing"
	"github.com/mihaimyh/gopremium/pkg/premium"
)

// EntitlementKey is the Echo context key the admitted entitlement is stored under
const EntitlementKey = "premium.entitlement"

// UserIDExtractor extracts the user ID from an Echo context
// Return empty string if user is not authenticated
type UserIDExtractor func(c echo.Context) string

// Config holds middleware configuration
type Config struct {
	// Storage is read for the user's entitlement (required)
	Storage premium.Storage

	// GetUserID extracts user ID from context (required)
	GetUserID UserIDExtractor

	// Now returns the instant access is checked at. Defaults to time.Now.
	Now func() time.Time

	// OnUnauthorized is called when user is not authenticated
	// If nil, returns 401 Unauthorized
	OnUnauthorized func(c echo.Context) error

	// OnPremiumRequired is called when the user has no active entitlement.
	// ent is nil when the user has no record.
	// If nil, returns 402 JSON with the entitlement status
	OnPremiumRequired func(c echo.Context, ent *premium.Entitlement) error

	// OnError is called when an internal error occurs
	// If nil, returns 500 Internal Server Error
	OnError func(c echo.Context, err error) error
}

// RequirePremium creates an Echo middleware that rejects users without an
// open entitlement window
func RequirePremium(cfg Config) echo.MiddlewareFunc {
	// Validate required configuration at startup (fail fast)
	if cfg.Storage == nil {
		panic("gopremium/echo: Config.Storage is required")
	}
	if cfg.GetUserID == nil {
		panic("gopremium/echo: Config.GetUserID is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := cfg.GetUserID(c)
			if userID == "" {
				if cfg.OnUnauthorized != nil {
					return cfg.OnUnauthorized(c)
				}
				return defaultUnauthorized(c)
			}

			now := cfg.Now()
			ent, err := premium.CheckAccess(c.Request().Context(), cfg.Storage, userID, now)
			if err != nil {
				if errors.Is(err, premium.ErrPremiumRequired) {
					if cfg.OnPremiumRequired != nil {
						return cfg.OnPremiumRequired(c, ent)
					}
					return defaultPremiumRequired(c, ent, now)
				}
				if cfg.OnError != nil {
					return cfg.OnError(c, err)
				}
				return defaultError(c)
			}

			c.Set(EntitlementKey, ent)
			return next(c)
		}
	}
}

// Webhook mounts a billing provider's webhook handler as an Echo handler
func Webhook(provider billing.Provider) echo.HandlerFunc {
	return echo.WrapHandler(provider.WebhookHandler())
}

// GetEntitlement returns the entitlement RequirePremium stored in the context
func GetEntitlement(c echo.Context) (*premium.Entitlement, bool) {
	ent, ok := c.Get(EntitlementKey).(*premium.Entitlement)
	return ent, ok
}

// Default error handlers

func defaultUnauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
}

func defaultPremiumRequired(c echo.Context, ent *premium.Entitlement, now time.Time) error {
	return c.JSON(http.StatusPaymentRequired, map[string]interface{}{
		"error":  "Premium subscription required",
		"status": premium.StatusAt(ent, now),
	})
}

func defaultError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
}

// Convenience extractors for User ID

// FromContext returns a UserIDExtractor that gets user ID from Echo context values
func FromContext(key string) UserIDExtractor {
	return func(c echo.Context) string {
		if str, ok := c.Get(key).(string); ok {
			return str
		}
		return ""
	}
}

// FromHeader returns a UserIDExtractor that gets user ID from a header
func FromHeader(headerName string) UserIDExtractor {
	return func(c echo.Context) string {
		return c.Request().Header.Get(headerName)
	}
}

// FromParam returns a UserIDExtractor that gets user ID from a route parameter
func FromParam(paramName string) UserIDExtractor {
	return func(c echo.Context) string {
		return c.Param(paramName)
	}
}
