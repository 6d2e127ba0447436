package types

import "errors"

// ARCHITECTURAL DISCOVERY: Specific error types enable proper HTTP mapping
// without string matching in handlers
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidStatus     = errors.New("status must be one of upcoming, live, completed")
	ErrIncompleteMeeting = errors.New("meeting data requires meetingId, joinUrl and startUrl")
	ErrEmptyMessage      = errors.New("message requires text or attachments")
)
