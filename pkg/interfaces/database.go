package interfaces

import (
	"context"
	"time"

	"liveacademy/pkg/types"
)

// SessionStore persists Session rows
// ARCHITECTURAL DISCOVERY: Each write touches a single row, so no
// multi-row transaction is ever required by callers
type SessionStore interface {
	CreateSession(ctx context.Context, session *types.Session) error
	GetSession(ctx context.Context, sessionID string) (*types.Session, error)
	ListSessionsByCourse(ctx context.Context, courseID string) ([]*types.Session, error)

	// UpdateSession writes the mutable columns (title, labels, host, status, summary)
	UpdateSession(ctx context.Context, session *types.Session) error
	UpdateSessionStatus(ctx context.Context, sessionID, status string) error

	// AttachMeeting writes all meeting columns in one statement
	AttachMeeting(ctx context.Context, sessionID string, meeting types.MeetingData) error
	GetSessionByMeetingID(ctx context.Context, meetingID string) (*types.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// ParticipantStore persists participant attendance records
type ParticipantStore interface {
	InsertParticipant(ctx context.Context, p *types.Participant) error

	// CloseLatestOpenParticipant sets left_at on the most recently joined open
	// record matching key (or name when key is empty). Returns
	// ErrParticipantNotFound when nothing matches.
	CloseLatestOpenParticipant(ctx context.Context, sessionID, key, name string, leftAt time.Time) (*types.Participant, error)
	ListParticipants(ctx context.Context, sessionID string) ([]*types.Participant, error)
}

// ChatStore persists chat documents
type ChatStore interface {
	GetChatByUser(ctx context.Context, userID string) (*types.Chat, error)
	ListChats(ctx context.Context) ([]*types.Chat, error)

	// MutateChat loads the chat for userID (creating it when create is true),
	// applies fn and writes the result back inside the single writer
	MutateChat(ctx context.Context, userID string, create bool, fn func(*types.Chat) error) (*types.Chat, error)
}

// UserDirectory resolves users by id
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*types.User, error)
}

// CourseDirectory answers course existence checks
type CourseDirectory interface {
	CourseExists(ctx context.Context, courseID string) (bool, error)
}

// HealthChecker reports store connectivity
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
