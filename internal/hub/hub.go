package hub

import (
	"context"
	"sync"

	"liveacademy/internal/logging"
	"liveacademy/internal/metrics"
	"liveacademy/internal/websocket"
	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

const emissionBuffer = 1000

// emission is one queued server event
type emission struct {
	room      string // empty for broadcasts
	broadcast bool
	frame     types.Frame
}

// Hub fans server events out to room members or to every client
// ARCHITECTURAL DISCOVERY: Central coordination point for all outbound realtime
// traffic; one goroutine drains the queue, so every connection receives
// frames in the order they were emitted
type Hub struct {
	emissions       chan emission
	shutdownChannel chan struct{}
	done            chan struct{}

	registry *websocket.Registry

	running bool
	mu      sync.RWMutex
}

// NewHub creates a hub over the room registry
func NewHub(registry *websocket.Registry) *Hub {
	return &Hub{
		emissions:       make(chan emission, emissionBuffer),
		shutdownChannel: make(chan struct{}),
		done:            make(chan struct{}),
		registry:        registry,
	}
}

var _ interfaces.Broadcaster = (*Hub)(nil)

// Start begins hub processing
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	logging.Info().Msg("starting realtime hub")
	go h.run(ctx)
	return nil
}

// Stop halts the hub and waits for the delivery loop to exit. Frames still
// queued are discarded.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return ErrHubNotRunning
	}
	h.running = false
	close(h.shutdownChannel)
	h.mu.Unlock()

	<-h.done
	logging.Info().Msg("realtime hub stopped")
	return nil
}

// IsRunning reports whether emissions are accepted
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// EmitToRoom queues event for every connection currently in room
func (h *Hub) EmitToRoom(room, event string, payload interface{}) error {
	if room == "" {
		return ErrEmptyRoom
	}
	return h.enqueue(emission{room: room, frame: types.Frame{Event: event, Data: payload}})
}

// EmitBroadcast queues event for every connected client
func (h *Hub) EmitBroadcast(event string, payload interface{}) error {
	return h.enqueue(emission{broadcast: true, frame: types.Frame{Event: event, Data: payload}})
}

func (h *Hub) enqueue(e emission) error {
	if e.frame.Event == "" {
		return ErrEmptyEvent
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.running {
		return ErrHubNotRunning
	}

	// TECHNICAL DISCOVERY: Non-blocking send prevents a slow hub from stalling
	// HTTP handlers that emit
	select {
	case h.emissions <- e:
		return nil
	default:
		return ErrEmissionQueueFull
	}
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case e := <-h.emissions:
			h.deliver(e)
		case <-h.shutdownChannel:
			return
		case <-ctx.Done():
			h.mu.Lock()
			h.running = false
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) deliver(e emission) {
	kind := "room"
	var targets []interfaces.Connection
	if e.broadcast {
		kind = "broadcast"
		targets = h.registry.AllConnections()
	} else {
		targets = h.registry.RoomConnections(e.room)
	}

	for _, conn := range targets {
		if err := conn.WriteJSON(e.frame); err != nil {
			metrics.RealtimeEmits.WithLabelValues(kind, "dropped").Inc()
			logging.Debug().Err(err).Str("conn_id", conn.ID()).Str("event", e.frame.Event).Msg("realtime frame dropped")
			continue
		}
		metrics.RealtimeEmits.WithLabelValues(kind, "delivered").Inc()
	}
}
