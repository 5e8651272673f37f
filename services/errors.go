package services

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderConfig means no usable provider is configured or an
	// enabled one lacks credentials.
	ErrProviderConfig = errors.New("provider configuration error")
	// ErrNoLocation means neither coordinates nor an address are available.
	ErrNoLocation = errors.New("No location data (coordinates or address) available for suggestions.")
	// ErrPropertyNotFound means the property id does not exist.
	ErrPropertyNotFound = errors.New("property not found")
	// ErrInvalidCoordinates means the property has no usable coordinates
	// for a coordinate-only operation.
	ErrInvalidCoordinates = errors.New("property coordinates missing or invalid")
	// ErrRouteDiscovery wraps the failure that aborted a route discovery run.
	ErrRouteDiscovery = errors.New("route discovery failed")
	// ErrArchiveDisabled means no run archive is configured.
	ErrArchiveDisabled = errors.New("run archive is not configured")
)

// RateLimitError is a deliberate denial: the property was refreshed too
// recently.
type RateLimitError struct {
	HoursRemaining float64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Rate limit active. Please wait %.1f hours before refreshing suggestions.", e.HoursRemaining)
}

// IsValidation reports whether err is a caller input problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoLocation) ||
		errors.Is(err, ErrPropertyNotFound) ||
		errors.Is(err, ErrInvalidCoordinates)
}
