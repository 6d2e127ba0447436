package hub

import "errors"

// Hub-specific error types
var (
	ErrHubAlreadyRunning = errors.New("hub is already running")
	ErrHubNotRunning     = errors.New("hub is not running")
	ErrEmissionQueueFull = errors.New("emission queue is full")
	ErrEmptyRoom         = errors.New("room cannot be empty")
	ErrEmptyEvent        = errors.New("event name cannot be empty")
)
