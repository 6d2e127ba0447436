// Package participant records who joined and left a live session.
package participant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"liveacademy/internal/logging"
	"liveacademy/internal/metrics"
	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

// ErrSessionRequired is returned when an event names no session
var ErrSessionRequired = errors.New("session id is required")

// Tracker appends join records and closes them on leave
// FUNCTIONAL DISCOVERY: providers redeliver and reorder webhooks, so joins
// are never deduplicated and unmatched leaves are dropped rather than failed
type Tracker struct {
	store interfaces.ParticipantStore
	now   func() time.Time
}

// NewTracker creates a tracker over the participant store
func NewTracker(store interfaces.ParticipantStore) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// RecordJoin appends an open record
func (t *Tracker) RecordJoin(ctx context.Context, sessionID string, ev types.JoinEvent) (*types.Participant, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	now := t.now().UTC()
	p := &types.Participant{
		ID:             uuid.New().String(),
		SessionID:      sessionID,
		ParticipantKey: ev.ParticipantKey,
		UserID:         ev.UserID,
		Name:           ev.Name,
		Email:          ev.Email,
		JoinedAt:       now,
		CreatedAt:      now,
	}

	if err := t.store.InsertParticipant(ctx, p); err != nil {
		metrics.ParticipantEvents.WithLabelValues("join", "error").Inc()
		return nil, fmt.Errorf("failed to record join: %w", err)
	}

	metrics.ParticipantEvents.WithLabelValues("join", "recorded").Inc()
	logging.Ctx(ctx).Debug().
		Str("session_id", sessionID).
		Str("participant_key", ev.ParticipantKey).
		Str("name", ev.Name).
		Msg("participant joined")
	return p, nil
}

// RecordLeave closes the most recently joined open record matching
// participantKey, or name when the key is empty. It reports whether a record
// was closed; no match is not an error.
func (t *Tracker) RecordLeave(ctx context.Context, sessionID, participantKey, name string) (bool, error) {
	if sessionID == "" {
		return false, ErrSessionRequired
	}
	if participantKey == "" && name == "" {
		metrics.ParticipantEvents.WithLabelValues("leave", "dropped").Inc()
		logging.Ctx(ctx).Info().Str("session_id", sessionID).Msg("leave without key or name dropped")
		return false, nil
	}

	_, err := t.store.CloseLatestOpenParticipant(ctx, sessionID, participantKey, name, t.now().UTC())
	if errors.Is(err, interfaces.ErrParticipantNotFound) {
		metrics.ParticipantEvents.WithLabelValues("leave", "dropped").Inc()
		logging.Ctx(ctx).Info().
			Str("session_id", sessionID).
			Str("participant_key", participantKey).
			Str("name", name).
			Msg("leave without matching open join dropped")
		return false, nil
	}
	if err != nil {
		metrics.ParticipantEvents.WithLabelValues("leave", "error").Inc()
		return false, fmt.Errorf("failed to record leave: %w", err)
	}

	metrics.ParticipantEvents.WithLabelValues("leave", "recorded").Inc()
	return true, nil
}

// ListParticipants returns the session's records by join time
func (t *Tracker) ListParticipants(ctx context.Context, sessionID string) ([]*types.Participant, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	parts, err := t.store.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if parts == nil {
		parts = []*types.Participant{}
	}
	return parts, nil
}
