package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"liveacademy/internal/websocket"
	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

// fakeConn records frames in arrival order
type fakeConn struct {
	id     string
	mu     sync.Mutex
	frames []types.Frame
}

func (f *fakeConn) ID() string   { return f.id }
func (f *fakeConn) Close() error { return nil }
func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, v.(types.Frame))
	return nil
}

func (f *fakeConn) snapshot() []types.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Frame(nil), f.frames...)
}

func startHub(t *testing.T) (*Hub, *websocket.Registry) {
	t.Helper()
	registry := websocket.NewRegistry()
	h := NewHub(registry)
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start hub: %v", err)
	}
	t.Cleanup(func() { _ = h.Stop() })
	return h, registry
}

// waitForEvent waits until conn has received a frame named event
func waitForEvent(t *testing.T, conn *fakeConn, event string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, f := range conn.snapshot() {
			if f.Event == event {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s on %s", event, conn.id)
}

func TestHub_InterfaceCompliance(t *testing.T) {
	var _ interfaces.Broadcaster = (*Hub)(nil)
}

func TestHub_StartStop(t *testing.T) {
	h := NewHub(websocket.NewRegistry())

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start hub: %v", err)
	}
	if err := h.Start(context.Background()); err != ErrHubAlreadyRunning {
		t.Errorf("Expected ErrHubAlreadyRunning, got %v", err)
	}
	if err := h.Stop(); err != nil {
		t.Errorf("Failed to stop hub: %v", err)
	}
	if err := h.Stop(); err != ErrHubNotRunning {
		t.Errorf("Expected ErrHubNotRunning, got %v", err)
	}
	if err := h.EmitBroadcast(types.EventChatUpdated, nil); err != ErrHubNotRunning {
		t.Errorf("Expected ErrHubNotRunning after stop, got %v", err)
	}
}

func TestHub_ContextCancellationStops(t *testing.T) {
	h := NewHub(websocket.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	_ = h.Start(ctx)
	cancel()

	deadline := time.Now().Add(time.Second)
	for h.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h.IsRunning() {
		t.Error("Expected hub to stop when its context is cancelled")
	}
}

// FUNCTIONAL VALIDATION TEST: a room emission reaches only the room's members
func TestHub_EmitToRoomReachesOnlyMembers(t *testing.T) {
	h, registry := startHub(t)
	a, b := &fakeConn{id: "A"}, &fakeConn{id: "B"}
	_ = registry.Register(a)
	_ = registry.Register(b)
	_ = registry.Join("u1", a)

	if err := h.EmitToRoom("u1", types.EventChatMessage, map[string]string{"text": "hi"}); err != nil {
		t.Fatalf("EmitToRoom failed: %v", err)
	}
	// the broadcast is queued after the room event, so once both clients
	// see it the room event has been fully delivered
	_ = h.EmitBroadcast("sentinel", nil)
	waitForEvent(t, a, "sentinel")
	waitForEvent(t, b, "sentinel")

	aFrames, bFrames := a.snapshot(), b.snapshot()
	if len(aFrames) != 2 || aFrames[0].Event != types.EventChatMessage {
		t.Errorf("Expected A to receive chat:message then sentinel, got %v", aFrames)
	}
	if len(bFrames) != 1 || bFrames[0].Event != "sentinel" {
		t.Errorf("Expected B to receive only the sentinel, got %v", bFrames)
	}
}

func TestHub_EmitBroadcastReachesEveryone(t *testing.T) {
	h, registry := startHub(t)
	conns := []*fakeConn{{id: "A"}, {id: "B"}, {id: "C"}}
	for _, c := range conns {
		_ = registry.Register(c)
	}
	_ = registry.Join("u1", conns[0])

	payload := map[string]string{"userId": "u1"}
	if err := h.EmitBroadcast(types.EventChatUpdated, payload); err != nil {
		t.Fatalf("EmitBroadcast failed: %v", err)
	}
	for _, c := range conns {
		waitForEvent(t, c, types.EventChatUpdated)
	}
}

func TestHub_PerConnectionOrder(t *testing.T) {
	h, registry := startHub(t)
	a := &fakeConn{id: "A"}
	_ = registry.Register(a)
	_ = registry.Join("u1", a)

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			_ = h.EmitToRoom("u1", types.EventChatMessage, i)
		} else {
			_ = h.EmitBroadcast(types.EventChatUpdated, i)
		}
	}
	_ = h.EmitBroadcast("sentinel", nil)
	waitForEvent(t, a, "sentinel")

	frames := a.snapshot()
	if len(frames) != 51 {
		t.Fatalf("Expected 51 frames, got %d", len(frames))
	}
	for i := 0; i < 50; i++ {
		if frames[i].Data != i {
			t.Fatalf("Frame %d out of order: %v", i, frames[i].Data)
		}
	}
}

func TestHub_DisconnectedConnectionNoLongerReceives(t *testing.T) {
	h, registry := startHub(t)
	a, b := &fakeConn{id: "A"}, &fakeConn{id: "B"}
	_ = registry.Register(a)
	_ = registry.Register(b)
	_ = registry.Join("u1", a)
	_ = registry.Join("u1", b)

	registry.Unregister(a)

	_ = h.EmitToRoom("u1", types.EventChatMessage, "x")
	_ = h.EmitBroadcast("sentinel", nil)
	waitForEvent(t, b, "sentinel")

	if got := len(a.snapshot()); got != 0 {
		t.Errorf("Expected unregistered connection to receive nothing, got %d frames", got)
	}
}

func TestHub_EmitValidation(t *testing.T) {
	h, _ := startHub(t)

	if err := h.EmitToRoom("", types.EventChatMessage, nil); err != ErrEmptyRoom {
		t.Errorf("Expected ErrEmptyRoom, got %v", err)
	}
	if err := h.EmitBroadcast("", nil); err != ErrEmptyEvent {
		t.Errorf("Expected ErrEmptyEvent, got %v", err)
	}
}

func TestHub_QueueFull(t *testing.T) {
	h := NewHub(websocket.NewRegistry())
	// running without a delivery loop so the queue only fills
	h.running = true

	var err error
	for i := 0; i <= emissionBuffer; i++ {
		err = h.EmitBroadcast(types.EventChatUpdated, i)
	}
	if err != ErrEmissionQueueFull {
		t.Errorf("Expected ErrEmissionQueueFull, got %v", err)
	}
}
