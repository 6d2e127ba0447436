package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"liveacademy/internal/logging"
	"liveacademy/internal/websocket"
	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

// inboundFrame is what clients send. Data stays raw until the event is known.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Router implements the EventRouter interface
// ARCHITECTURAL DISCOVERY: Pure inbound dispatch without delivery logic; rooms
// are the only client-controlled state, and fan-out stays in the hub
type Router struct {
	registry    *websocket.Registry
	rateLimiter *RateLimiter
}

// NewRouter creates a router that joins clients to rooms in registry
func NewRouter(registry *websocket.Registry, eventsPerMinute int) *Router {
	return &Router{
		registry:    registry,
		rateLimiter: NewRateLimiter(eventsPerMinute),
	}
}

var _ interfaces.EventRouter = (*Router)(nil)

// Route handles one frame from conn. A returned error is sent back to the
// client; the connection stays open.
func (r *Router) Route(ctx context.Context, conn interfaces.Connection, frame []byte) error {
	// TECHNICAL DISCOVERY: Rate limiting applied before parsing so floods of
	// garbage cost as little as possible
	if !r.rateLimiter.Allow(conn.ID()) {
		return ErrRateLimitExceeded
	}

	var in inboundFrame
	if err := json.Unmarshal(frame, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch in.Event {
	case types.EventJoin:
		room, err := parseRoom(in.Data)
		if err != nil {
			return err
		}
		if err := r.registry.Join(room, conn); err != nil {
			if errors.Is(err, websocket.ErrInvalidRoom) {
				return ErrInvalidRoom
			}
			return err
		}
		logging.Ctx(ctx).Debug().Str("conn_id", conn.ID()).Str("room", room).Msg("joined room")
		return conn.WriteJSON(types.Frame{Event: types.EventJoined, Data: room})

	case types.EventLeave:
		room, err := parseRoom(in.Data)
		if err != nil {
			return err
		}
		r.registry.Leave(room, conn)
		return nil

	case "":
		return ErrMalformedFrame

	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, in.Event)
	}
}

// Disconnected drops the connection's rate limit state
func (r *Router) Disconnected(conn interfaces.Connection) {
	r.rateLimiter.Remove(conn.ID())
}

// parseRoom accepts a JSON string or number. Numbers keep their literal form,
// so 42 and "42" address the same room.
func parseRoom(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", ErrInvalidRoom
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return "", ErrInvalidRoom
	}

	var room string
	switch val := v.(type) {
	case string:
		room = val
	case json.Number:
		room = val.String()
	default:
		return "", ErrInvalidRoom
	}
	if room == "" {
		return "", ErrInvalidRoom
	}
	return room, nil
}
