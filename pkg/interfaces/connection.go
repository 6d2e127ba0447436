package interfaces

import "context"

// Connection represents one realtime client transport
// ARCHITECTURAL DISCOVERY: Pure abstraction without implementation details
// so the room registry and hub can be exercised with in-memory fakes
type Connection interface {
	// ID uniquely identifies the transport session (not the user)
	ID() string

	// WriteJSON queues a JSON frame for the client (thread-safe, non-blocking)
	WriteJSON(v interface{}) error

	// Close closes the connection and cleans up resources
	Close() error
}

// EventRouter dispatches frames received from a client connection
type EventRouter interface {
	Route(ctx context.Context, conn Connection, frame []byte) error

	// Disconnected releases per-connection router state
	Disconnected(conn Connection)
}

// Broadcaster fans out server events to connected clients
// FUNCTIONAL DISCOVERY: Delivery is best-effort; a returned error means the
// event was not queued at all, never that a client missed it
type Broadcaster interface {
	EmitToRoom(room, event string, payload interface{}) error
	EmitBroadcast(event string, payload interface{}) error
}
