package zoom

import (
	"context"
	"fmt"
	"time"

	"liveacademy/internal/config"
	"liveacademy/internal/logging"
	"liveacademy/internal/metrics"
	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

const defaultTopic = "Live Session"

// TokenSource yields a bearer token for the meetings API
type TokenSource interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// Provisioner creates a provider meeting for a session, records it on the
// session and signs a join token for it. A failure at any step leaves the
// session as it was before that step; nothing is rolled back.
type Provisioner struct {
	tokens          TokenSource
	meetings        *MeetingClient
	signer          *Signer
	sessions        interfaces.MeetingAttacher
	defaultTimezone string
	timeout         time.Duration
}

// NewProvisioner wires the provisioning pipeline
func NewProvisioner(cfg *config.ZoomConfig, tokens TokenSource, meetings *MeetingClient, signer *Signer, sessions interfaces.MeetingAttacher) *Provisioner {
	return &Provisioner{
		tokens:          tokens,
		meetings:        meetings,
		signer:          signer,
		sessions:        sessions,
		defaultTimezone: cfg.DefaultTimezone,
		timeout:         cfg.RequestTimeout,
	}
}

// Signer exposes the join-token signer for standalone signature requests
func (p *Provisioner) Signer() *Signer { return p.signer }

// CreateMeeting runs token -> create -> attach -> sign
func (p *Provisioner) CreateMeeting(ctx context.Context, req types.MeetingRequest) (*types.MeetingResult, error) {
	result, err := p.createMeeting(ctx, req)
	if err != nil {
		kind := Kind(err)
		metrics.ZoomProvisions.WithLabelValues(kind).Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("session_id", req.SessionID).Str("kind", kind).Msg("meeting provisioning failed")
		return nil, err
	}

	metrics.ZoomProvisions.WithLabelValues("success").Inc()
	logging.Ctx(ctx).Info().Str("session_id", req.SessionID).Str("meeting_id", result.MeetingID).Msg("meeting provisioned")
	return result, nil
}

func (p *Provisioner) createMeeting(ctx context.Context, req types.MeetingRequest) (*types.MeetingResult, error) {
	role := req.SigningRole()
	if !types.IsValidMeetingRole(role) {
		return nil, ErrInvalidRole
	}
	token, err := p.tokens.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body := createMeetingBody{
		Topic:     req.Topic,
		Type:      meetingTypeScheduled,
		StartTime: req.StartTime,
		Timezone:  req.Timezone,
		Settings:  meetingSettings{HostVideo: true, ParticipantVideo: true},
	}
	if body.Topic == "" {
		body.Topic = defaultTopic
	}
	if body.Timezone == "" {
		body.Timezone = p.defaultTimezone
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	meeting, err := p.meetings.CreateMeeting(callCtx, token, body)
	if err != nil {
		return nil, err
	}

	data := types.MeetingData{
		MeetingID: string(meeting.ID),
		JoinURL:   meeting.JoinURL,
		StartURL:  meeting.StartURL,
		Password:  meeting.Password,
	}
	if _, err := p.sessions.AttachMeeting(ctx, req.SessionID, data); err != nil {
		return nil, fmt.Errorf("attaching meeting %s: %w", data.MeetingID, err)
	}

	// the meeting stays attached when signing fails so webhooks still match
	signature, err := p.signer.Sign(data.MeetingID, role)
	if err != nil {
		return nil, fmt.Errorf("signing meeting %s: %w", data.MeetingID, err)
	}

	return &types.MeetingResult{
		MeetingID: data.MeetingID,
		Password:  data.Password,
		JoinURL:   data.JoinURL,
		StartURL:  data.StartURL,
		AppKey:    p.signer.AppKey(),
		Signature: signature,
		Role:      role,
	}, nil
}
