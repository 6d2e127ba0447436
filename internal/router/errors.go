package router

import "errors"

// Inbound frame errors. Each is reported back to the client as an error frame.
var (
	ErrMalformedFrame    = errors.New("malformed frame")
	ErrUnknownEvent      = errors.New("unknown event")
	ErrInvalidRoom       = errors.New("room must be a non-empty string or number")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
