package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

var participantColumns = []string{
	"id", "session_id", "participant_id", "user_id", "name", "user_email",
	"joined_at", "left_at", "created_at",
}

// InsertParticipant appends an attendance record
func (m *Manager) InsertParticipant(ctx context.Context, p *types.Participant) error {
	query, args, err := m.psq.Insert("session_participants").
		Columns(participantColumns...).
		Values(p.ID, p.SessionID, p.ParticipantKey, p.UserID, p.Name, p.Email,
			p.JoinedAt, nullTime(p.LeftAt), p.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build participant insert: %w", err)
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
		return nil
	})
}

// CloseLatestOpenParticipant closes the most recently joined open record
// matching key, or name when key is empty
// TECHNICAL DISCOVERY: the lookup and the update run inside the single
// writer so two concurrent leaves cannot close the same record
func (m *Manager) CloseLatestOpenParticipant(ctx context.Context, sessionID, key, name string, leftAt time.Time) (*types.Participant, error) {
	match := sq.Eq{"session_id": sessionID, "left_at": nil}
	if key != "" {
		match["participant_id"] = key
	} else {
		match["name"] = name
	}

	selectQuery, selectArgs, err := m.psq.Select(participantColumns...).
		From("session_participants").
		Where(match).
		OrderBy("joined_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build participant lookup: %w", err)
	}

	var closed *types.Participant
	err = m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		p, err := scanParticipant(db.QueryRowContext(ctx, selectQuery, selectArgs...))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return interfaces.ErrParticipantNotFound
			}
			return fmt.Errorf("failed to find open participant: %w", err)
		}

		updateQuery, updateArgs, err := m.psq.Update("session_participants").
			Set("left_at", leftAt).
			Where(sq.Eq{"id": p.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build participant close: %w", err)
		}
		if _, err := db.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
			return fmt.Errorf("failed to close participant: %w", err)
		}

		p.LeftAt = &leftAt
		closed = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// ListParticipants returns a session's records ordered by join time
func (m *Manager) ListParticipants(ctx context.Context, sessionID string) ([]*types.Participant, error) {
	query, args, err := m.psq.Select(participantColumns...).
		From("session_participants").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("joined_at ASC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build participant list: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	participants := []*types.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func scanParticipant(row rowScanner) (*types.Participant, error) {
	var p types.Participant
	var leftAt sql.NullTime

	err := row.Scan(&p.ID, &p.SessionID, &p.ParticipantKey, &p.UserID, &p.Name, &p.Email,
		&p.JoinedAt, &leftAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.JoinedAt = p.JoinedAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	if leftAt.Valid {
		t := leftAt.Time.UTC()
		p.LeftAt = &t
	}
	return &p, nil
}
