package websocket

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"liveacademy/internal/config"
	"liveacademy/internal/logging"
	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

// WebSocket upgrader with production-ready settings
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Any origin may connect, matching the default CORS policy of the REST surface
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

const maxFrameSize = 64 << 10

// Handler upgrades realtime clients and pumps their inbound frames into the
// event router
// ARCHITECTURAL DISCOVERY: Clean separation of socket handling from room and
// fan-out logic; the handler only knows the registry and the router contract
type Handler struct {
	registry *Registry
	router   interfaces.EventRouter
	cfg      *config.WebSocketConfig
}

// NewHandler creates a new WebSocket handler with dependency injection
func NewHandler(registry *Registry, router interfaces.EventRouter, cfg *config.WebSocketConfig) *Handler {
	return &Handler{
		registry: registry,
		router:   router,
		cfg:      cfg,
	}
}

// HandleWebSocket upgrades the request and registers the connection. Rooms
// are joined afterwards with a join frame.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := NewConnection(ws, h.cfg.BufferSize, h.cfg.WriteTimeout)
	if err := h.registry.Register(conn); err != nil {
		logging.Error().Err(err).Msg("failed to register connection")
		_ = conn.Close()
		return
	}

	logging.Debug().Str("conn_id", conn.ID()).Str("remote", r.RemoteAddr).Msg("realtime client connected")
	go h.handleConnection(conn)
}

// handleConnection owns the read side and the heartbeat of one connection
// TECHNICAL DISCOVERY: read deadline is pushed forward on every pong, so a
// client that stops answering pings is dropped after ReadTimeout
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.registry.Unregister(conn)
		h.router.Disconnected(conn)
		_ = conn.Close()
		logging.Debug().Str("conn_id", conn.ID()).Msg("realtime client disconnected")
	}()

	conn.conn.SetReadLimit(maxFrameSize)
	if err := conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.writeControl(websocket.PingMessage, nil); err != nil {
					_ = conn.Close()
					return
				}
			case <-conn.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug().Err(err).Str("conn_id", conn.ID()).Msg("websocket read error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		if err := h.router.Route(conn.ctx, conn, data); err != nil {
			logging.Debug().Err(err).Str("conn_id", conn.ID()).Msg("inbound frame rejected")
			h.sendError(conn, err)
		}
	}
}

func (h *Handler) sendError(conn *Connection, cause error) {
	frame := types.Frame{Event: types.EventError, Data: map[string]string{"message": cause.Error()}}
	if err := conn.WriteJSON(frame); err != nil && !errors.Is(err, ErrConnectionClosed) {
		logging.Debug().Err(err).Str("conn_id", conn.ID()).Msg("failed to send error frame")
	}
}
