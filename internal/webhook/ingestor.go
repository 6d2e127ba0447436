// Package webhook turns meeting provider event deliveries into session and
// participant updates.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"strconv"

	"github.com/goccy/go-json"

	"liveacademy/internal/logging"
	"liveacademy/internal/metrics"
	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

// ErrMalformedEnvelope is the only failure a sender ever sees
var ErrMalformedEnvelope = errors.New("malformed webhook envelope: event is required")

// Recognized provider events
const (
	EventParticipantJoined = "meeting.participant_joined"
	EventParticipantLeft   = "meeting.participant_left"
	EventMeetingEnded      = "meeting.ended"
)

// Outcomes, also used as metric labels
const (
	OutcomeIgnored   = "ignored"    // unrecognized event
	OutcomeNoMeeting = "no_meeting" // payload carried no meeting id
	OutcomeUntracked = "untracked"  // no session for the meeting
	OutcomeApplied   = "applied"
	OutcomeDropped   = "dropped" // leave without a matching join
	OutcomeFailed    = "failed"  // store failure, logged only
)

// Result describes what one delivery did
type Result struct {
	Event     string
	MeetingID string
	SessionID string
	Outcome   string
}

// Ingestor applies provider events
// ARCHITECTURAL DISCOVERY: once the envelope parses, nothing downstream can
// turn the delivery into a failure, so providers never retry into a storm
type Ingestor struct {
	sessions     interfaces.SessionLookup
	participants interfaces.ParticipantRecorder
}

// NewIngestor creates an ingestor
func NewIngestor(sessions interfaces.SessionLookup, participants interfaces.ParticipantRecorder) *Ingestor {
	return &Ingestor{sessions: sessions, participants: participants}
}

// Ingest parses and applies one delivery. The only error it returns is
// ErrMalformedEnvelope.
// Deliveries are not authenticated: the provider signature header is not
// verified and url_validation challenges are not answered.
func (i *Ingestor) Ingest(ctx context.Context, body []byte) (*Result, error) {
	event, payload, err := parseEnvelope(body)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("", "malformed").Inc()
		return nil, err
	}

	res := i.apply(ctx, event, payload)
	metrics.WebhookEvents.WithLabelValues(metricEvent(event), res.Outcome).Inc()

	log := logging.Ctx(ctx).Info()
	if res.Outcome == OutcomeFailed {
		log = logging.Ctx(ctx).Error()
	}
	log.Str("event", res.Event).
		Str("meeting_id", res.MeetingID).
		Str("session_id", res.SessionID).
		Str("outcome", res.Outcome).
		Msg("webhook processed")
	return res, nil
}

func (i *Ingestor) apply(ctx context.Context, event string, payload map[string]interface{}) *Result {
	res := &Result{Event: event}

	switch event {
	case EventParticipantJoined, EventParticipantLeft, EventMeetingEnded:
	default:
		res.Outcome = OutcomeIgnored
		return res
	}

	object := asObject(payload["object"])
	res.MeetingID = firstString(object, "id", "meeting_id", "uuid")
	if res.MeetingID == "" {
		res.Outcome = OutcomeNoMeeting
		return res
	}

	session, err := i.sessions.FindByMeetingID(ctx, res.MeetingID)
	if err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			res.Outcome = OutcomeUntracked
			return res
		}
		logging.Ctx(ctx).Error().Err(err).Str("meeting_id", res.MeetingID).Msg("session lookup failed")
		res.Outcome = OutcomeFailed
		return res
	}
	res.SessionID = session.ID

	participant := asObject(object["participant"])
	if participant == nil {
		participant = asObject(payload["participant"])
	}

	switch event {
	case EventParticipantJoined:
		ev := types.JoinEvent{
			ParticipantKey: firstString(participant, "user_id", "id", "participant_id"),
			Name:           firstString(participant, "user_name", "name", "display_name", "email"),
			Email:          firstString(participant, "email", "user_email"),
		}
		if ev.Name == "" {
			ev.Name = "Unknown"
		}
		if _, err := i.participants.RecordJoin(ctx, session.ID, ev); err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("session_id", session.ID).Msg("failed to record join")
			res.Outcome = OutcomeFailed
			return res
		}
		res.Outcome = OutcomeApplied

	case EventParticipantLeft:
		key := firstString(participant, "user_id", "id", "participant_id")
		name := firstString(participant, "user_name", "name", "display_name", "email")
		closed, err := i.participants.RecordLeave(ctx, session.ID, key, name)
		switch {
		case err != nil:
			logging.Ctx(ctx).Error().Err(err).Str("session_id", session.ID).Msg("failed to record leave")
			res.Outcome = OutcomeFailed
		case closed:
			res.Outcome = OutcomeApplied
		default:
			res.Outcome = OutcomeDropped
		}

	case EventMeetingEnded:
		if _, err := i.sessions.SetStatus(ctx, session.ID, types.StatusCompleted); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("session_id", session.ID).Msg("failed to set session completed")
			res.Outcome = OutcomeFailed
			return res
		}
		res.Outcome = OutcomeApplied
	}

	return res
}

func parseEnvelope(body []byte) (string, map[string]interface{}, error) {
	var envelope struct {
		Event   interface{}            `json:"event"`
		Payload map[string]interface{} `json:"payload"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&envelope); err != nil {
		return "", nil, ErrMalformedEnvelope
	}

	event, ok := envelope.Event.(string)
	if !ok || event == "" {
		return "", nil, ErrMalformedEnvelope
	}
	return event, envelope.Payload, nil
}

func asObject(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

// firstString returns the first non-empty value among keys, rendering
// numeric ids as their decimal text
func firstString(obj map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// metricEvent bounds label cardinality to the recognized events
func metricEvent(event string) string {
	switch event {
	case EventParticipantJoined, EventParticipantLeft, EventMeetingEnded:
		return event
	default:
		return "other"
	}
}
