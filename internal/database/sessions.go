package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"

	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

var sessionColumns = []string{
	"id", "course_id", "title", "date_label", "time_range", "host", "host_id",
	"status", "summary", "attendees", "meeting_id", "join_url", "start_url",
	"meeting_password", "created_at",
}

// CreateSession inserts a new session row
func (m *Manager) CreateSession(ctx context.Context, session *types.Session) error {
	attendees := session.Attendees
	if attendees == nil {
		attendees = []types.Attendee{}
	}
	attendeesJSON, err := json.Marshal(attendees)
	if err != nil {
		return fmt.Errorf("failed to marshal attendees: %w", err)
	}

	var meeting types.MeetingData
	if session.MeetingData != nil {
		meeting = *session.MeetingData
	}

	query, args, err := m.psq.Insert("sessions").
		Columns(sessionColumns...).
		Values(
			session.ID, session.CourseID, session.Title, session.DateLabel, session.TimeRange,
			session.Host, session.HostID, session.Status, session.Summary, string(attendeesJSON),
			nullString(meeting.MeetingID), nullString(meeting.JoinURL), nullString(meeting.StartURL),
			nullString(meeting.Password), session.CreatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build session insert: %w", err)
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		return nil
	})
}

// GetSession retrieves a session by ID
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	return m.getSessionWhere(ctx, sq.Eq{"id": sessionID})
}

// GetSessionByMeetingID resolves the session owning a provider meeting
func (m *Manager) GetSessionByMeetingID(ctx context.Context, meetingID string) (*types.Session, error) {
	return m.getSessionWhere(ctx, sq.Eq{"meeting_id": meetingID})
}

func (m *Manager) getSessionWhere(ctx context.Context, where sq.Sqlizer) (*types.Session, error) {
	query, args, err := m.psq.Select(sessionColumns...).
		From("sessions").
		Where(where).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build session query: %w", err)
	}

	session, err := scanSession(m.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return session, nil
}

// ListSessionsByCourse returns a course's sessions, newest first
func (m *Manager) ListSessionsByCourse(ctx context.Context, courseID string) ([]*types.Session, error) {
	query, args, err := m.psq.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"course_id": courseID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build session list: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := []*types.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// UpdateSession writes the mutable columns of an existing session
func (m *Manager) UpdateSession(ctx context.Context, session *types.Session) error {
	return m.updateSession(ctx, session.ID, map[string]interface{}{
		"title":      session.Title,
		"date_label": session.DateLabel,
		"time_range": session.TimeRange,
		"host":       session.Host,
		"host_id":    session.HostID,
		"status":     session.Status,
		"summary":    session.Summary,
	})
}

// UpdateSessionStatus sets only the status column
func (m *Manager) UpdateSessionStatus(ctx context.Context, sessionID, status string) error {
	return m.updateSession(ctx, sessionID, map[string]interface{}{"status": status})
}

// AttachMeeting writes all provider columns in a single statement
func (m *Manager) AttachMeeting(ctx context.Context, sessionID string, meeting types.MeetingData) error {
	if err := meeting.Validate(); err != nil {
		return err
	}
	return m.updateSession(ctx, sessionID, map[string]interface{}{
		"meeting_id":       meeting.MeetingID,
		"join_url":         meeting.JoinURL,
		"start_url":        meeting.StartURL,
		"meeting_password": meeting.Password,
	})
}

func (m *Manager) updateSession(ctx context.Context, sessionID string, set map[string]interface{}) error {
	query, args, err := m.psq.Update("sessions").
		SetMap(set).
		Where(sq.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build session update: %w", err)
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		result, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return requireAffected(result, interfaces.ErrSessionNotFound)
	})
}

// DeleteSession removes the session row. Participant records are kept.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	query, args, err := m.psq.Delete("sessions").Where(sq.Eq{"id": sessionID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build session delete: %w", err)
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		result, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return requireAffected(result, interfaces.ErrSessionNotFound)
	})
}

func scanSession(row rowScanner) (*types.Session, error) {
	var session types.Session
	var attendeesJSON string
	var meetingID, joinURL, startURL, password sql.NullString

	err := row.Scan(
		&session.ID, &session.CourseID, &session.Title, &session.DateLabel, &session.TimeRange,
		&session.Host, &session.HostID, &session.Status, &session.Summary, &attendeesJSON,
		&meetingID, &joinURL, &startURL, &password, &session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(attendeesJSON), &session.Attendees); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attendees: %w", err)
	}
	if session.Attendees == nil {
		session.Attendees = []types.Attendee{}
	}

	// FUNCTIONAL DISCOVERY: a row only carries meeting data once attach
	// wrote every column together
	if meetingID.Valid && meetingID.String != "" {
		session.MeetingData = &types.MeetingData{
			MeetingID: meetingID.String,
			JoinURL:   joinURL.String,
			StartURL:  startURL.String,
			Password:  password.String,
		}
	}
	session.CreatedAt = session.CreatedAt.UTC()

	return &session, nil
}

func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
