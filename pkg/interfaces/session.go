package interfaces

import (
	"context"

	"liveacademy/pkg/types"
)

// MeetingAttacher is the only path by which provider metadata reaches a session
type MeetingAttacher interface {
	AttachMeeting(ctx context.Context, sessionID string, meeting types.MeetingData) (*types.Session, error)
}

// SessionLookup is what webhook ingestion needs from the session store
type SessionLookup interface {
	FindByMeetingID(ctx context.Context, meetingID string) (*types.Session, error)
	SetStatus(ctx context.Context, sessionID, status string) (*types.Session, error)
}

// MeetingProvisioner creates provider meetings and signs join tokens
type MeetingProvisioner interface {
	CreateMeeting(ctx context.Context, req types.MeetingRequest) (*types.MeetingResult, error)
}

// ParticipantRecorder ingests join/leave events
type ParticipantRecorder interface {
	RecordJoin(ctx context.Context, sessionID string, ev types.JoinEvent) (*types.Participant, error)
	RecordLeave(ctx context.Context, sessionID, participantKey, name string) (bool, error)
}
