// Package fiber provides Fiber middleware for premium gating and the Paystack webhook route
package fiber

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/mihaimyh/gopremium/pkg/billing"
	"github.com/mihaimyh/gopremium/pkg/premium"
)

// EntitlementKey is the Fiber locals key the admitted entitlement is stored under
const EntitlementKey = "premium.entitlement"

// UserIDExtractor extracts the user ID from a Fiber context
// Return empty string if user is not authenticated
type UserIDExtractor func(c *fiber.Ctx) string

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
	OnUnauthorized func(c *fiber.Ctx) error

	// OnPremiumRequired is called when the user has no active entitlement.
	// ent is nil when the user has no record.
	// If nil, returns 402 JSON with the entitlement status
	OnPremiumRequired func(c *fiber.Ctx, ent *premium.Entitlement) error

	// OnError is called when an internal error occurs
	// If nil, returns 500 Internal Server Error
	OnError func(c *fiber.Ctx, err error) error
}

// RequirePremium creates a Fiber middleware that rejects users without an
// open entitlement window
func RequirePremium(cfg Config) fiber.Handler {
	// Validate required configuration at startup (fail fast)
	if cfg.Storage == nil {
		panic("gopremium/fiber: Config.Storage is required")
	}
	if cfg.GetUserID == nil {
		panic("gopremium/fiber: Config.GetUserID is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(c *fiber.Ctx) error {
		userID := cfg.GetUserID(c)
		if userID == "" {
			if cfg.OnUnauthorized != nil {
				return cfg.OnUnauthorized(c)
			}
			return defaultUnauthorized(c)
		}

		now := cfg.Now()
		ent, err := premium.CheckAccess(c.UserContext(), cfg.Storage, userID, now)
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

		c.Locals(EntitlementKey, ent)
		return c.Next()
	}
}

// Webhook mounts a billing provider's webhook handler as a Fiber handler
func Webhook(provider billing.Provider) fiber.Handler {
	return adaptor.HTTPHandler(provider.WebhookHandler())
}

// GetEntitlement returns the entitlement RequirePremium stored in locals
func GetEntitlement(c *fiber.Ctx) (*premium.Entitlement, bool) {
	ent, ok := c.Locals(EntitlementKey).(*premium.Entitlement)
	return ent, ok
}

// Default error handlers

func defaultUnauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}

func defaultPremiumRequired(c *fiber.Ctx, ent *premium.Entitlement, now time.Time) error {
	return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
		"error":  "Premium subscription required",
		"status": premium.StatusAt(ent, now),
	})
}

func defaultError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
}

// Convenience extractors for User ID

// FromLocals returns a UserIDExtractor that gets user ID from Fiber locals,
// where auth middleware typically stores it
func FromLocals(key string) UserIDExtractor {
	return func(c *fiber.Ctx) string {
		if str, ok := c.Locals(key).(string); ok {
			return str
		}
		return ""
	}
}

// FromHeader returns a UserIDExtractor that gets user ID from a header
func FromHeader(headerName string) UserIDExtractor {
	return func(c *fiber.Ctx) string {
		return c.Get(headerName)
	}
}

// FromParam returns a UserIDExtractor that gets user ID from a route parameter
func FromParam(paramName string) UserIDExtractor {
	return func(c *fiber.Ctx) string {
		return c.Params(paramName)
	}
}
