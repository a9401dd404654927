package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrVariantNotFound is returned when a variant id does not exist on the product
	ErrVariantNotFound = errors.New("variant not found")

	// ErrNoVariants is returned when an upsell product has no variants to match
	ErrNoVariants = errors.New("upsell product has no variants")

	// ErrBridgeUnavailable is returned when the editor bridge never became ready
	ErrBridgeUnavailable = errors.New("editor bridge unavailable")

	// ErrCartAPIFailure is returned when the cart API request fails
	ErrCartAPIFailure = errors.New("cart API request failed")

	// ErrSessionNotFound is returned when no state exists for a session
	ErrSessionNotFound = errors.New("session not found")
)
