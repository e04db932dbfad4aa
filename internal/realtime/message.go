// Package realtime delivers change notifications to connected clients of
// one family. Delivery is best-effort and at-least-once; every message
// carries an event id so consumers can drop duplicates.
package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is a change notification scoped to a family.
type Message struct {
	EventID  string         `json:"event_id"`
	Type     string         `json:"type"`
	Entity   string         `json:"entity"`
	Action   string         `json:"action"`
	FamilyID int64          `json:"family_id"`
	ID       int64          `json:"id,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
	SentAt   time.Time      `json:"sent_at"`
}

// NewMessage creates a Message with a fresh event id and the Type field
// derived from entity and action.
func NewMessage(familyID int64, entity, action string, id int64, extra map[string]any) Message {
	return Message{
		EventID:  uuid.NewString(),
		Type:     fmt.Sprintf("%s_%s", entity, action),
		Entity:   entity,
		Action:   action,
		FamilyID: familyID,
		ID:       id,
		Extra:    extra,
		SentAt:   time.Now().UTC(),
	}
}

// Publisher sends a message to a family's subscribers.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Discard is a Publisher that drops every message.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Message) error { return nil }
