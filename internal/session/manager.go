package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"liveacademy/internal/logging"
	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

// Manager owns session rows: creation, partial updates, status changes and
// meeting attachment all go through it
// FUNCTIONAL DISCOVERY: status moves are not guarded, any status may follow
// any other and the last write wins
type Manager struct {
	store   interfaces.SessionStore
	courses interfaces.CourseDirectory
	now     func() time.Time
}

// NewManager creates a session manager. courses may be nil, in which case
// course existence is not checked.
func NewManager(store interfaces.SessionStore, courses interfaces.CourseDirectory) *Manager {
	return &Manager{
		store:   store,
		courses: courses,
		now:     time.Now,
	}
}

// CreateSession validates and persists a new session with status upcoming
// unless one was given
func (m *Manager) CreateSession(ctx context.Context, in *types.Session) (*types.Session, error) {
	session := *in
	session.ID = uuid.New().String()
	session.CreatedAt = m.now().UTC()
	session.MeetingData = nil
	if session.Status == "" {
		session.Status = types.StatusUpcoming
	}
	if session.Attendees == nil {
		session.Attendees = []types.Attendee{}
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	if m.courses != nil {
		exists, err := m.courses.CourseExists(ctx, session.CourseID)
		if err != nil {
			return nil, fmt.Errorf("failed to check course %s: %w", session.CourseID, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, session.CourseID)
		}
	}

	if err := m.store.CreateSession(ctx, &session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("session_id", session.ID).
		Str("course_id", session.CourseID).
		Str("status", session.Status).
		Msg("session created")
	return &session, nil
}

// GetSession retrieves a session by ID
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	return m.store.GetSession(ctx, sessionID)
}

// ListSessions returns a course's sessions, newest first
func (m *Manager) ListSessions(ctx context.Context, courseID string) ([]*types.Session, error) {
	if courseID == "" {
		return nil, ErrCourseRequired
	}
	sessions, err := m.store.ListSessionsByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []*types.Session{}
	}
	return sessions, nil
}

// UpdateSession applies a partial update. Fields outside SessionUpdate are
// never touched.
func (m *Manager) UpdateSession(ctx context.Context, sessionID string, update types.SessionUpdate) (*types.Session, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return session, nil
	}

	update.Apply(session)
	if err := m.store.UpdateSession(ctx, session); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("session_id", sessionID).Str("status", session.Status).Msg("session updated")
	return session, nil
}

// SetStatus is the single status write path shared by explicit updates and
// meeting-ended webhooks
func (m *Manager) SetStatus(ctx context.Context, sessionID, status string) (*types.Session, error) {
	if !types.IsValidStatus(status) {
		return nil, types.ErrInvalidStatus
	}
	if err := m.store.UpdateSessionStatus(ctx, sessionID, status); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("session_id", sessionID).Str("status", status).Msg("session status set")
	return m.store.GetSession(ctx, sessionID)
}

// AttachMeeting records provider meeting metadata on the session
func (m *Manager) AttachMeeting(ctx context.Context, sessionID string, meeting types.MeetingData) (*types.Session, error) {
	if err := meeting.Validate(); err != nil {
		return nil, err
	}
	if err := m.store.AttachMeeting(ctx, sessionID, meeting); err != nil {
		return nil, err
	}
	return m.store.GetSession(ctx, sessionID)
}

// FindByMeetingID resolves the session a provider meeting belongs to
func (m *Manager) FindByMeetingID(ctx context.Context, meetingID string) (*types.Session, error) {
	if meetingID == "" {
		return nil, ErrSessionNotFound
	}
	return m.store.GetSessionByMeetingID(ctx, meetingID)
}

// DeleteSession removes the session row. The provider meeting is left alone.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	if err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Str("session_id", sessionID).Msg("session deleted")
	return nil
}
