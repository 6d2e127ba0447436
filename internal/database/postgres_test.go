package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "liveacademy/pkg/database"
	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

const testDBError = "connection refused"

func newMockManager(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	m := NewManagerWithDB(db, dbconfig.DriverPostgres, time.Second)
	t.Cleanup(func() { _ = m.Close() })
	return m, mock
}

func TestPostgres_UpdateSessionStatusUsesDollarPlaceholders(t *testing.T) {
	m, mock := newMockManager(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET status = $1 WHERE id = $2")).
		WithArgs(types.StatusCompleted, testSessionID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, m.UpdateSessionStatus(context.Background(), testSessionID, types.StatusCompleted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateSessionStatusNotFound(t *testing.T) {
	m, mock := newMockManager(t)

	mock.ExpectExec("UPDATE sessions SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := m.UpdateSessionStatus(context.Background(), "missing", types.StatusLive)
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AttachMeetingWritesAllColumnsAtOnce(t *testing.T) {
	m, mock := newMockManager(t)
	md := testMeeting()

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE sessions SET join_url = $1, meeting_id = $2, meeting_password = $3, start_url = $4 WHERE id = $5")).
		WithArgs(md.JoinURL, md.MeetingID, md.Password, md.StartURL, testSessionID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, m.AttachMeeting(context.Background(), testSessionID, md))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetSessionByMeetingID(t *testing.T) {
	m, mock := newMockManager(t)
	created := time.Now().UTC().Truncate(time.Second)

	rows := sqlmock.NewRows(sessionColumns).AddRow(
		testSessionID, testCourseID, "Physics live", "Mon", "10-11", "Ram", "teacher-1",
		types.StatusLive, "", `[]`, testMeetingID, "https://j", "https://s", "", created,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE meeting_id = $1 ORDER BY created_at DESC LIMIT 1")).
		WithArgs(testMeetingID).
		WillReturnRows(rows)

	s, err := m.GetSessionByMeetingID(context.Background(), testMeetingID)
	require.NoError(t, err)
	assert.Equal(t, testSessionID, s.ID)
	require.NotNil(t, s.MeetingData)
	assert.Equal(t, "", s.MeetingData.Password)
	assert.Equal(t, []types.Attendee{}, s.Attendees)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetSessionWithoutMeeting(t *testing.T) {
	m, mock := newMockManager(t)

	rows := sqlmock.NewRows(sessionColumns).AddRow(
		testSessionID, testCourseID, "Physics live", "Mon", "10-11", "Ram", "teacher-1",
		types.StatusUpcoming, "", `[{"id":"u1","name":"Sita"}]`, nil, nil, nil, nil, time.Now(),
	)
	mock.ExpectQuery("FROM sessions WHERE id").WithArgs(testSessionID).WillReturnRows(rows)

	s, err := m.GetSession(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Nil(t, s.MeetingData)
	assert.Len(t, s.Attendees, 1)
}

func TestPostgres_QueryErrorIsWrapped(t *testing.T) {
	m, mock := newMockManager(t)

	mock.ExpectQuery("FROM session_participants").
		WillReturnError(errors.New(testDBError))

	_, err := m.ListParticipants(context.Background(), testSessionID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), testDBError)
	assert.NotErrorIs(t, err, interfaces.ErrParticipantNotFound)
}

func TestPostgres_CloseLatestOpenParticipantQuery(t *testing.T) {
	m, mock := newMockManager(t)
	joined := time.Now().UTC().Add(-time.Minute)
	leftAt := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(
		"left_at IS NULL AND participant_id = $1 AND session_id = $2")).
		WithArgs("zk-1", testSessionID).
		WillReturnRows(sqlmock.NewRows(participantColumns).
			AddRow("p1", testSessionID, "zk-1", "", "Sita", "", joined, nil, joined))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE session_participants SET left_at = $1 WHERE id = $2")).
		WithArgs(leftAt, "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := m.CloseLatestOpenParticipant(context.Background(), testSessionID, "zk-1", "Sita", leftAt)
	require.NoError(t, err)
	require.NotNil(t, p.LeftAt)
	assert.True(t, p.LeftAt.Equal(leftAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CloseLatestOpenParticipantNoMatch(t *testing.T) {
	m, mock := newMockManager(t)

	mock.ExpectQuery("FROM session_participants").
		WillReturnRows(sqlmock.NewRows(participantColumns))

	_, err := m.CloseLatestOpenParticipant(context.Background(), testSessionID, "", "Nobody", time.Now())
	assert.ErrorIs(t, err, interfaces.ErrParticipantNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
