package zoom

import (
	"errors"

	"liveacademy/pkg/interfaces"
)

var (
	// Configuration errors are not retryable
	ErrMissingCredentials = errors.New("zoom oauth credentials are not configured")
	ErrMissingSigningKey  = errors.New("zoom sdk key and secret are not configured")
	ErrInvalidRole        = errors.New("role must be 0 (attendee) or 1 (host)")

	// Provider errors
	ErrTokenRequest        = errors.New("zoom oauth token request failed")
	ErrProviderRequest     = errors.New("zoom meeting request failed")
	ErrProviderUnavailable = errors.New("zoom meeting api unavailable")
)

// Error kinds reported alongside a failed provisioning
const (
	KindConfiguration = "configuration"
	KindProvider      = "provider"
	KindNotFound      = "not_found"
	KindInternal      = "internal"
)

// Kind classifies a provisioning error
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredentials), errors.Is(err, ErrMissingSigningKey), errors.Is(err, ErrInvalidRole):
		return KindConfiguration
	case errors.Is(err, ErrTokenRequest), errors.Is(err, ErrProviderRequest), errors.Is(err, ErrProviderUnavailable):
		return KindProvider
	case errors.Is(err, interfaces.ErrSessionNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
