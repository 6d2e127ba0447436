package chat

import (
	"errors"

	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

var (
	ErrChatNotFound    = interfaces.ErrChatNotFound
	ErrMessageNotFound = errors.New("message not found")
	ErrForbidden       = errors.New("not allowed to modify this message")
	ErrEmptyMessage    = types.ErrEmptyMessage
	ErrInvalidSender   = errors.New("sender must be user or admin")
	ErrUserRequired    = errors.New("user id is required")
)
