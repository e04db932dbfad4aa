// Package registry is the single entry point for chore, wishlist and ledger
// operations. It delegates to the engines and announces every successful
// change on the realtime bus and, where a member should be told, over push.
package registry

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukerupert/marinda/internal/chore"
	"github.com/dukerupert/marinda/internal/ledger"
	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/realtime"
	"github.com/dukerupert/marinda/internal/store"
	"github.com/dukerupert/marinda/internal/wishlist"
)

// Notifier sends member-facing notifications. Implementations must not
// block the caller.
type Notifier interface {
	ChoreSubmitted(ctx context.Context, c *model.Chore)
	ChoreApproved(c *model.Chore, credits []model.LedgerEntry)
	ChoreRejected(c *model.Chore, doers []int64)
	WishFulfilled(it *model.WishlistItem, debit *model.LedgerEntry)
}

type Registry struct {
	chores   *chore.Engine
	wishlist *wishlist.Engine
	ledger   *ledger.Service
	families *store.FamilyStore
	bus      realtime.Publisher
	notifier Notifier
	logger   *slog.Logger
}

func New(chores *chore.Engine, wl *wishlist.Engine, l *ledger.Service, families *store.FamilyStore, bus realtime.Publisher, logger *slog.Logger) *Registry {
	if bus == nil {
		bus = realtime.Discard
	}
	return &Registry{
		chores:   chores,
		wishlist: wl,
		ledger:   l,
		families: families,
		bus:      bus,
		logger:   logger.With("component", "registry"),
	}
}

// SetNotifier enables push notifications.
func (r *Registry) SetNotifier(n Notifier) {
	r.notifier = n
}

// publish announces a change. Delivery failures are logged and never undo
// or fail the operation that caused them.
func (r *Registry) publish(ctx context.Context, familyID int64, entity, action string, id int64, extra map[string]any) {
	msg := realtime.NewMessage(familyID, entity, action, id, extra)
	if err := r.bus.Publish(ctx, msg); err != nil {
		r.logger.Warn("publish change", "type", msg.Type, "event_id", msg.EventID, "error", err)
	}
}

func (r *Registry) publishBalance(ctx context.Context, e *model.LedgerEntry) {
	r.publish(ctx, e.FamilyID, "member", "points_changed", e.MemberID, map[string]any{
		"delta":    e.Delta,
		"reason":   e.Reason,
		"kind":     e.Kind,
		"entry_id": e.ID,
	})
}

// Sweep persists expiry of every overdue chore and announces each one.
func (r *Registry) Sweep(ctx context.Context) (int, error) {
	refs, err := r.chores.ExpireOverdue(ctx)
	if err != nil {
		return 0, err
	}
	for _, ref := range refs {
		r.publish(ctx, ref.FamilyID, "chore", "expired", ref.ID, nil)
	}
	return len(refs), nil
}

// ReconcileAll reconciles every family. Mismatches are logged by the ledger
// and returned joined.
func (r *Registry) ReconcileAll(ctx context.Context) error {
	ids, err := r.families.ListIDs(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if _, err := r.ledger.Reconcile(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
