// Package http provides net/http middleware that gates handlers on an active
// premium entitlement.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mihaimyh/gopremium/pkg/premium"
)

// UserIDExtractor extracts the user ID from an HTTP request
// Return empty string if user is not authenticated
type UserIDExtractor func(r *http.Request) string

// Config holds middleware configuration
type Config struct {
	// Storage is read for the user's entitlement (required)
	Storage premium.Storage

	// GetUserID extracts user ID from request (required)
	GetUserID UserIDExtractor

	// Now returns the instant access is checked at. Defaults to time.Now.
	Now func() time.Time

	// OnUnauthorized is called when user is not authenticated
	// If nil, returns 401 Unauthorized
	OnUnauthorized func(w http.ResponseWriter, r *http.Request)

	// OnPremiumRequired is called when the user has no active entitlement.
	// ent is nil when the user has no record.
	// If nil, returns 402 Payment Required
	OnPremiumRequired func(w http.ResponseWriter, r *http.Request, ent *premium.Entitlement)

	// OnError is called when an internal error occurs
	// If nil, returns 500 Internal Server Error
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// RequirePremium creates an HTTP middleware that only lets users with an
// open entitlement window through. The entitlement is available to the next
// handler via EntitlementFromContext.
func RequirePremium(config Config) func(http.Handler) http.Handler {
	if config.Storage == nil {
		panic("gopremium/http: Config.Storage is required")
	}
	if config.GetUserID == nil {
		panic("gopremium/http: Config.GetUserID is required")
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := config.GetUserID(r)
			if userID == "" {
				if config.OnUnauthorized != nil {
					config.OnUnauthorized(w, r)
				} else {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
				}
				return
			}

			ent, err := premium.CheckAccess(r.Context(), config.Storage, userID, config.Now())
			if err != nil {
				if errors.Is(err, premium.ErrPremiumRequired) {
					if config.OnPremiumRequired != nil {
						config.OnPremiumRequired(w, r, ent)
					} else {
						http.Error(w, "Premium subscription required", http.StatusPaymentRequired)
					}
					return
				}
				if config.OnError != nil {
					config.OnError(w, r, err)
				} else {
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(withEntitlement(r.Context(), ent)))
		})
	}
}

// HandlerFunc creates the premium middleware for http.HandlerFunc
func HandlerFunc(config Config) func(http.HandlerFunc) http.HandlerFunc {
	middleware := RequirePremium(config)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return middleware(next).ServeHTTP
	}
}

// ContextKey is a type for context keys
type ContextKey string

const (
	// UserIDKey is the context key for user ID
	UserIDKey ContextKey = "premium:userID"

	entitlementKey ContextKey = "premium:entitlement"
)

// FromContext returns an UserIDExtractor that gets user ID from request context
func FromContext(key ContextKey) UserIDExtractor {
	return func(r *http.Request) string {
		if userID, ok := r.Context().Value(key).(string); ok {
			return userID
		}
		return ""
	}
}

// FromHeader returns an UserIDExtractor that gets user ID from a header
func FromHeader(headerName string) UserIDExtractor {
	return func(r *http.Request) string {
		return r.Header.Get(headerName)
	}
}

// WithUserID adds user ID to request context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// EntitlementFromContext returns the entitlement RequirePremium admitted the request with
func EntitlementFromContext(ctx context.Context) (*premium.Entitlement, bool) {
	ent, ok := ctx.Value(entitlementKey).(*premium.Entitlement)
	return ent, ok
}

func withEntitlement(ctx context.Context, ent *premium.Entitlement) context.Context {
	return context.WithValue(ctx, entitlementKey, ent)
}
