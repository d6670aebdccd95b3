package premium

import "errors"

var (
	// ErrUserNotFound is returned when an update targets a user record that does not exist
	ErrUserNotFound = errors.New("user record not found")

	// ErrEntitlementNotFound is returned when a user has no entitlement record
	ErrEntitlementNotFound = errors.New("entitlement not found")

	// ErrStorageUnavailable is returned when storage is unavailable
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidUpdate is returned for updates missing a user id or expiry
	ErrInvalidUpdate = errors.New("invalid payment update")

	// ErrPremiumRequired is returned when a user has no active entitlement
	ErrPremiumRequired = errors.New("premium entitlement required")
)
