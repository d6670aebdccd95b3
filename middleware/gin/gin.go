// Package gin provides Gin middleware for premium gating and the Paystack webhook route
package gin

import (
	"errors"
	"net/http"
	"time"

	gongin "github.com/gin-gonic/gin"

	"github.com/mihaimyh/gopremium/pkg/billing"
	"github.com/mihaimyh/gopremium/pkg/premium"
)

// EntitlementKey is the Gin context key the admitted entitlement is stored under
const EntitlementKey = "premium.entitlement"

// UserIDExtractor extracts the user ID from a Gin context
// Return empty string if user is not authenticated
type UserIDExtractor func(c *gongin.Context) string

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
	OnUnauthorized func(c *gongin.Context)

	// OnPremiumRequired is called when the user has no active entitlement.
	// ent is nil when the user has no record.
	// If nil, returns 402 JSON with the entitlement status
	OnPremiumRequired func(c *gongin.Context, ent *premium.Entitlement)

	// OnError is called when an internal error occurs
	// If nil, returns 500 Internal Server Error
	OnError func(c *gongin.Context, err error)
}

// RequirePremium creates a Gin middleware that aborts unless the user has an
// open entitlement window
func RequirePremium(cfg Config) gongin.HandlerFunc {
	// Validate required configuration at startup (fail fast)
	if cfg.Storage == nil {
		panic("gopremium/gin: Config.Storage is required")
	}
	if cfg.GetUserID == nil {
		panic("gopremium/gin: Config.GetUserID is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(c *gongin.Context) {
		userID := cfg.GetUserID(c)
		if userID == "" {
			if cfg.OnUnauthorized != nil {
				cfg.OnUnauthorized(c)
			} else {
				defaultUnauthorized(c)
			}
			c.Abort()
			return
		}

		now := cfg.Now()
		ent, err := premium.CheckAccess(c.Request.Context(), cfg.Storage, userID, now)
		if err != nil {
			switch {
			case errors.Is(err, premium.ErrPremiumRequired) && cfg.OnPremiumRequired != nil:
				cfg.OnPremiumRequired(c, ent)
			case errors.Is(err, premium.ErrPremiumRequired):
				defaultPremiumRequired(c, ent, now)
			case cfg.OnError != nil:
				cfg.OnError(c, err)
			default:
				defaultError(c)
			}
			c.Abort()
			return
		}

		c.Set(EntitlementKey, ent)
		c.Next()
	}
}

// Webhook mounts a billing provider's webhook handler as a Gin handler
func Webhook(provider billing.Provider) gongin.HandlerFunc {
	return gongin.WrapH(provider.WebhookHandler())
}

// GetEntitlement returns the entitlement RequirePremium stored in the context
func GetEntitlement(c *gongin.Context) (*premium.Entitlement, bool) {
	val, exists := c.Get(EntitlementKey)
	if !exists {
		return nil, false
	}
	ent, ok := val.(*premium.Entitlement)
	return ent, ok
}

// Default error handlers

func defaultUnauthorized(c *gongin.Context) {
	c.JSON(http.StatusUnauthorized, gongin.H{"error": "Unauthorized"})
}

func defaultPremiumRequired(c *gongin.Context, ent *premium.Entitlement, now time.Time) {
	c.JSON(http.StatusPaymentRequired, gongin.H{
		"error":  "Premium subscription required",
		"status": premium.StatusAt(ent, now),
	})
}

func defaultError(c *gongin.Context) {
	c.JSON(http.StatusInternalServerError, gongin.H{"error": "Internal Server Error"})
}

// Convenience extractors for User ID

// FromContext returns a UserIDExtractor that gets user ID from Gin context values
// This is the recommended approach for integrating with auth middleware that sets
// user information via c.Set("UserID", "...") or similar.
//
// Example:
//
//	// In your auth middleware:
//	c.Set("UserID", userID)
//
//	// In premium middleware config:
//	GetUserID: gin.FromContext("UserID")
func FromContext(key string) UserIDExtractor {
	return func(c *gongin.Context) string {
		if val, exists := c.Get(key); exists {
			if str, ok := val.(string); ok {
				return str
			}
		}
		return ""
	}
}

// FromHeader returns a UserIDExtractor that gets user ID from a header
func FromHeader(headerName string) UserIDExtractor {
	return func(c *gongin.Context) string {
		return c.GetHeader(headerName)
	}
}

// FromParam returns a UserIDExtractor that gets user ID from a route parameter
func FromParam(paramName string) UserIDExtractor {
	return func(c *gongin.Context) string {
		return c.Param(paramName)
	}
}
