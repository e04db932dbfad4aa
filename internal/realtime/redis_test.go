package realtime

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/dukerupert/marinda/internal/logging"
)

// Requires a reachable Redis; set MARINDA_TEST_REDIS_URL to run.
func TestRedisRelayBetweenInstances(t *testing.T) {
	url := os.Getenv("MARINDA_TEST_REDIS_URL")
	if url == "" {
		t.Skip("MARINDA_TEST_REDIS_URL not set")
	}
	channel := "marinda:test:" + NewMessage(0, "x", "y", 0, nil).EventID

	hubA, hubB := NewHub(logging.Discard()), NewHub(logging.Discard())
	relayA, err := NewRedisRelay(url, channel, hubA, logging.Discard())
	if err != nil {
		t.Fatalf("relay A: %v", err)
	}
	defer relayA.Close()
	relayB, err := NewRedisRelay(url, channel, hubB, logging.Discard())
	if err != nil {
		t.Fatalf("relay B: %v", err)
	}
	defer relayB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go relayB.Run(ctx)
	time.Sleep(200 * time.Millisecond)

	c := mockClient(hubB, 4)
	hubB.Register(c)
	defer hubB.Unregister(c)

	sent := NewMessage(4, "chore", "approved", 1, nil)
	if err := relayA.Publish(ctx, sent); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.EventID != sent.EventID {
			t.Errorf("event id = %s, want %s", got.EventID, sent.EventID)
		}
	case <-ctx.Done():
		t.Fatal("relayed message never arrived")
	}
}
