package zoom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"liveacademy/internal/config"
	"liveacademy/internal/logging"
	"liveacademy/internal/metrics"
)

// scheduled meeting
const meetingTypeScheduled = 2

type meetingSettings struct {
	HostVideo        bool `json:"host_video"`
	ParticipantVideo bool `json:"participant_video"`
}

type createMeetingBody struct {
	Topic     string          `json:"topic"`
	Type      int             `json:"type"`
	StartTime string          `json:"start_time,omitempty"`
	Timezone  string          `json:"timezone"`
	Settings  meetingSettings `json:"settings"`
}

// meetingID accepts the provider's numeric id as well as a string
type meetingID string

func (m *meetingID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = meetingID(s)
		return nil
	}
	if string(b) == "null" {
		*m = ""
		return nil
	}
	*m = meetingID(strings.TrimSpace(string(b)))
	return nil
}

type meetingResponse struct {
	ID       meetingID `json:"id"`
	JoinURL  string    `json:"join_url"`
	StartURL string    `json:"start_url"`
	Password string    `json:"password"`
}

// MeetingClient creates meetings through the REST API behind a circuit breaker
type MeetingClient struct {
	baseURL string
	user    string
	client  *http.Client
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[*meetingResponse]
}

// NewMeetingClient builds a client for the configured API user
func NewMeetingClient(cfg *config.ZoomConfig, client *http.Client) *MeetingClient {
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}

	metrics.ZoomCircuitBreakerState.Set(0)
	cb := gobreaker.NewCircuitBreaker[*meetingResponse](gobreaker.Settings{
		Name:        "zoom-meetings",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.ZoomCircuitBreakerState.Set(float64(to))
		},
	})

	return &MeetingClient{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		user:    cfg.OAuthUser,
		client:  client,
		timeout: cfg.RequestTimeout,
		cb:      cb,
	}
}

// StatusError is a non-2xx answer from the meetings API
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrProviderRequest, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrProviderRequest }

// breakerSuccess counts only transport failures, 5xx and 429 against the
// breaker; a 4xx rejection means the provider is up
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 400 && se.Status < 500 && se.Status != http.StatusTooManyRequests
	}
	return false
}

// CreateMeeting posts a scheduled meeting on behalf of the API user
func (c *MeetingClient) CreateMeeting(ctx context.Context, token string, body createMeetingBody) (*meetingResponse, error) {
	resp, err := c.cb.Execute(func() (*meetingResponse, error) {
		return c.createMeeting(ctx, token, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *MeetingClient) createMeeting(ctx context.Context, token string, body createMeetingBody) (*meetingResponse, error) {
	start := time.Now()
	defer metrics.ObserveZoomRequest("create_meeting", start)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding body: %v", ErrProviderRequest, err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/meetings", c.baseURL, url.PathEscape(c.user))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrProviderRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Message: providerMessage(raw)}
	}

	var m meetingResponse
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrProviderRequest, err)
	}
	if m.ID == "" || m.JoinURL == "" || m.StartURL == "" {
		return nil, fmt.Errorf("%w: response missing meeting id or urls", ErrProviderRequest)
	}
	return &m, nil
}
