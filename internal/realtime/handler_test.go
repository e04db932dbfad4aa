package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/logging"
	"github.com/dukerupert/marinda/internal/model"
)

func withActor(a auth.Actor, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), a)))
	})
}

func TestHandleWebSocketDeliversFamilyMessages(t *testing.T) {
	hub := NewHub(logging.Discard())
	actor := auth.Actor{MemberID: 3, FamilyID: 7, Role: model.RoleChild}
	srv := httptest.NewServer(withActor(actor, HandleWebSocket(hub, logging.Discard())))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := hub.Publish(ctx, NewMessage(7, "chore", "submitted", 9, nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "chore_submitted" || got.ID != 9 {
		t.Errorf("got %+v", got)
	}
}

func TestHandleWebSocketRequiresActor(t *testing.T) {
	hub := NewHub(logging.Discard())
	rec := httptest.NewRecorder()
	HandleWebSocket(hub, logging.Discard())(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
