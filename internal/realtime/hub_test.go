package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/marinda/internal/logging"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, familyID int64) *Client {
	return &Client{
		hub:      hub,
		familyID: familyID,
		send:     make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(logging.Discard())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 2)
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}
	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}
	hub.Unregister(c2)
	// Should not panic
	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastIsFamilyScoped(t *testing.T) {
	hub := NewHub(logging.Discard())

	mine := mockClient(hub, 1)
	also := mockClient(hub, 1)
	theirs := mockClient(hub, 2)
	for _, c := range []*Client{mine, also, theirs} {
		hub.Register(c)
	}

	hub.Broadcast(NewMessage(1, "chore", "approved", 42, map[string]any{"points": float64(10)}))

	for _, c := range []*Client{mine, also} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "chore_approved" || got.ID != 42 || got.FamilyID != 1 {
				t.Errorf("got %+v", got)
			}
			if got.EventID == "" {
				t.Error("expected an event id")
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}
	select {
	case <-theirs.send:
		t.Error("message leaked to another family")
	default:
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(logging.Discard())
	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage(1, "test", "fill", int64(i), nil))
	}
	// Dropped rather than blocking.
	hub.Broadcast(NewMessage(1, "test", "dropped", 999, nil))

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("expected %d buffered messages, got %d", sendBufferSize, got)
	}
	hub.Unregister(c)
}

func TestNewMessageEventIDsAreUnique(t *testing.T) {
	a := NewMessage(1, "wishlist", "fulfilled", 5, nil)
	b := NewMessage(1, "wishlist", "fulfilled", 5, nil)
	if a.EventID == b.EventID {
		t.Errorf("duplicate event id %s", a.EventID)
	}
	if a.Type != "wishlist_fulfilled" || a.Entity != "wishlist" || a.Action != "fulfilled" {
		t.Errorf("message = %+v", a)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(logging.Discard())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(family int64) {
			defer wg.Done()
			c := mockClient(hub, family)
			hub.Register(c)
			hub.Broadcast(NewMessage(family, "test", "concurrent", 0, nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i % 3))
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
