package session

import (
	"errors"

	"liveacademy/pkg/interfaces"
)

// Session management error types
var (
	ErrSessionNotFound = interfaces.ErrSessionNotFound
	ErrCourseNotFound  = errors.New("course not found")
	ErrCourseRequired  = errors.New("course id is required")
	ErrSessionRequired = errors.New("session id is required")
)
