package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/store"
)

const (
	queueSize   = 256
	sendTimeout = 10 * time.Second
)

type job struct {
	familyID  int64
	memberIDs []int64
	payload   Payload
}

// Dispatcher queues notifications and sends them from a background worker
// so request handlers never wait on a push service.
type Dispatcher struct {
	mu      sync.RWMutex
	sender  Sender
	subs    *store.PushStore
	members *store.FamilyMemberStore
	logger  *slog.Logger
	queue   chan job
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewDispatcher(sender Sender, subs *store.PushStore, members *store.FamilyMemberStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		subs:    subs,
		members: members,
		logger:  logger.With("component", "push"),
		queue:   make(chan job, queueSize),
	}
}

// Start begins the worker loop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-d.queue:
				d.deliver(ctx, j)
			}
		}
	}()
}

// Stop stops the worker. Queued notifications not yet sent are dropped.
func (d *Dispatcher) Stop() {
	d.mu.RLock()
	cancel := d.cancel
	done := d.done
	d.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Notify queues payload for the given members. It never blocks; when the
// queue is full the notification is dropped.
func (d *Dispatcher) Notify(familyID int64, memberIDs []int64, payload Payload) {
	if len(memberIDs) == 0 {
		return
	}
	select {
	case d.queue <- job{familyID: familyID, memberIDs: memberIDs, payload: payload}:
	default:
		d.logger.Warn("push queue full, dropping notification", "family_id", familyID, "type", payload.Type)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	subs, err := d.subs.ListByMembers(ctx, j.familyID, j.memberIDs)
	if err != nil {
		d.logger.Error("list push subscriptions", "family_id", j.familyID, "error", err)
		return
	}
	for i := range subs {
		sub := &subs[i]
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := d.sender.Send(sendCtx, sub, j.payload)
		cancel()
		switch {
		case err == nil:
		case errors.Is(err, ErrExpired):
			if err := d.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				d.logger.Error("delete expired subscription", "subscription_id", sub.ID, "error", err)
			}
		default:
			d.logger.Warn("send push", "subscription_id", sub.ID, "type", j.payload.Type, "error", err)
		}
	}
}

// ChoreSubmitted tells the family's parents a chore awaits approval.
func (d *Dispatcher) ChoreSubmitted(ctx context.Context, c *model.Chore) {
	parents, err := d.members.ListParents(ctx, c.FamilyID)
	if err != nil {
		d.logger.Error("list parents", "family_id", c.FamilyID, "error", err)
		return
	}
	ids := make([]int64, 0, len(parents))
	for _, p := range parents {
		ids = append(ids, p.ID)
	}
	d.Notify(c.FamilyID, ids, Payload{
		Title: "Chore ready for review",
		Body:  fmt.Sprintf("%s was marked done", c.Title),
		URL:   fmt.Sprintf("/chores/%d", c.ID),
		Tag:   fmt.Sprintf("chore-%d", c.ID),
		Type:  model.NotifTypeChoreSubmitted,
	})
}

// ChoreApproved tells each doer how many points they earned.
func (d *Dispatcher) ChoreApproved(c *model.Chore, credits []model.LedgerEntry) {
	for _, cr := range credits {
		d.Notify(c.FamilyID, []int64{cr.MemberID}, Payload{
			Title: "Chore approved",
			Body:  fmt.Sprintf("You earned %d points for %s", cr.Delta, c.Title),
			URL:   fmt.Sprintf("/chores/%d", c.ID),
			Tag:   fmt.Sprintf("chore-%d", c.ID),
			Type:  model.NotifTypeChoreApproved,
		})
	}
}

// ChoreRejected tells the doers their submission was sent back.
func (d *Dispatcher) ChoreRejected(c *model.Chore, doers []int64) {
	d.Notify(c.FamilyID, doers, Payload{
		Title: "Chore needs another try",
		Body:  fmt.Sprintf("%s was sent back", c.Title),
		URL:   fmt.Sprintf("/chores/%d", c.ID),
		Tag:   fmt.Sprintf("chore-%d", c.ID),
		Type:  model.NotifTypeChoreRejected,
	})
}

// WishFulfilled tells the owner their wish came true.
func (d *Dispatcher) WishFulfilled(it *model.WishlistItem, debit *model.LedgerEntry) {
	body := fmt.Sprintf("%s is yours", it.Title)
	if debit != nil {
		body = fmt.Sprintf("%s is yours for %d points", it.Title, -debit.Delta)
	}
	d.Notify(it.FamilyID, []int64{it.MemberID}, Payload{
		Title: "Wish fulfilled",
		Body:  body,
		URL:   "/wishlist",
		Tag:   fmt.Sprintf("wish-%d", it.ID),
		Type:  model.NotifTypeWishlistFulfilled,
	})
}
