package registry

import (
	"context"
	"time"

	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/wishlist"
)

// Balances is the family leaderboard, highest balance first.
func (r *Registry) Balances(ctx context.Context, familyID int64) ([]model.FamilyMember, error) {
	return r.ledger.Balances(ctx, familyID)
}

func (r *Registry) History(ctx context.Context, familyID, memberID int64, limit int, since *time.Time) ([]model.LedgerEntry, error) {
	return r.ledger.History(ctx, familyID, memberID, limit, since)
}

func (r *Registry) AdjustPoints(ctx context.Context, actor auth.Actor, memberID, delta int64, reason string) (*model.LedgerEntry, error) {
	e, err := r.ledger.Adjust(ctx, actor, memberID, delta, reason)
	if err != nil {
		return nil, err
	}
	r.publishBalance(ctx, e)
	return e, nil
}

// Reconcile checks the actor's family. Drift is returned with a
// Consistency error.
func (r *Registry) Reconcile(ctx context.Context, actor auth.Actor) ([]model.BalanceDrift, error) {
	if err := auth.Require(actor.Role, auth.OpLedgerReconcile); err != nil {
		return nil, err
	}
	return r.ledger.Reconcile(ctx, actor.FamilyID)
}

// PointsValue converts a point amount to a display price.
func (r *Registry) PointsValue(ctx context.Context, familyID, points int64) (*wishlist.PointsValue, error) {
	return r.wishlist.PriceOf(ctx, familyID, points)
}
