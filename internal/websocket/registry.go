package websocket

import (
	"sync"

	"liveacademy/internal/metrics"
	"liveacademy/pkg/interfaces"
)

// Registry tracks connected clients and the rooms they joined
// ARCHITECTURAL DISCOVERY: Pure membership bookkeeping without delivery logic
// keeps fan-out policy in the hub
type Registry struct {
	mu          sync.RWMutex                                // TECHNICAL DISCOVERY: RWMutex optimizes for read-heavy fan-out lookups
	connections map[string]interfaces.Connection            // connID -> Connection
	rooms       map[string]map[string]interfaces.Connection // room -> connID -> Connection
	memberships map[string]map[string]struct{}              // connID -> rooms
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]interfaces.Connection),
		rooms:       make(map[string]map[string]interfaces.Connection),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Register makes a connection reachable by broadcasts
func (r *Registry) Register(conn interfaces.Connection) error {
	if conn == nil {
		return ErrNilConnection
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connections[conn.ID()]; exists {
		return nil
	}
	r.connections[conn.ID()] = conn
	r.memberships[conn.ID()] = make(map[string]struct{})
	metrics.RealtimeConnections.Inc()
	return nil
}

// Join adds a registered connection to a room. Joining twice is a no-op.
func (r *Registry) Join(room string, conn interfaces.Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	if room == "" {
		return ErrInvalidRoom
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, exists := r.memberships[conn.ID()]
	if !exists {
		return ErrNotRegistered
	}
	if r.rooms[room] == nil {
		r.rooms[room] = make(map[string]interfaces.Connection)
	}
	r.rooms[room][conn.ID()] = conn
	rooms[room] = struct{}{}
	return nil
}

// Leave removes a connection from one room
func (r *Registry) Leave(room string, conn interfaces.Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(room, conn.ID())
}

func (r *Registry) leaveLocked(room, connID string) {
	if members, exists := r.rooms[room]; exists {
		delete(members, connID)
		// TECHNICAL DISCOVERY: Clean up empty maps to prevent memory leaks
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if rooms, exists := r.memberships[connID]; exists {
		delete(rooms, room)
	}
}

// Unregister removes a connection from every room it joined. Idempotent.
func (r *Registry) Unregister(conn interfaces.Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	rooms, exists := r.memberships[id]
	if !exists {
		return
	}
	for room := range rooms {
		r.leaveLocked(room, id)
	}
	delete(r.memberships, id)
	delete(r.connections, id)
	metrics.RealtimeConnections.Dec()
}

// RoomConnections returns a snapshot of a room's members
func (r *Registry) RoomConnections(room string) []interfaces.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	out := make([]interfaces.Connection, 0, len(members))
	for _, conn := range members {
		out = append(out, conn)
	}
	return out
}

// AllConnections returns a snapshot of every registered connection
func (r *Registry) AllConnections() []interfaces.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]interfaces.Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		out = append(out, conn)
	}
	return out
}

// Rooms lists the rooms a connection belongs to
func (r *Registry) Rooms(conn interfaces.Connection) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := r.memberships[conn.ID()]
	out := make([]string, 0, len(rooms))
	for room := range rooms {
		out = append(out, room)
	}
	return out
}

// GetStats returns registry counts for health reporting
func (r *Registry) GetStats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"total_connections": len(r.connections),
		"active_rooms":      len(r.rooms),
	}
}
