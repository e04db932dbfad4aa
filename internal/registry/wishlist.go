package registry

import (
	"context"

	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/wishlist"
)

func (r *Registry) AddWish(ctx context.Context, actor auth.Actor, in wishlist.ItemInput) (*model.WishlistItem, error) {
	it, err := r.wishlist.Add(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, it.FamilyID, "wishlist_item", "created", it.ID, map[string]any{"member_id": it.MemberID})
	return it, nil
}

func (r *Registry) ListWishes(ctx context.Context, familyID, memberID int64, status model.WishlistStatus) ([]model.WishlistItem, error) {
	return r.wishlist.List(ctx, familyID, memberID, status)
}

func (r *Registry) UpdateWish(ctx context.Context, actor auth.Actor, id int64, in wishlist.ItemInput) (*model.WishlistItem, error) {
	it, err := r.wishlist.Update(ctx, actor, id, in)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, it.FamilyID, "wishlist_item", "updated", it.ID, nil)
	return it, nil
}

func (r *Registry) DeleteWish(ctx context.Context, actor auth.Actor, id int64) error {
	if err := r.wishlist.Delete(ctx, actor, id); err != nil {
		return err
	}
	r.publish(ctx, actor.FamilyID, "wishlist_item", "deleted", id, nil)
	return nil
}

func (r *Registry) PreviewWish(ctx context.Context, familyID, id int64) (*wishlist.Preview, error) {
	return r.wishlist.Preview(ctx, familyID, id)
}

func (r *Registry) FulfillWish(ctx context.Context, actor auth.Actor, id int64, expected model.WishlistStatus) (*model.WishlistItem, *model.LedgerEntry, error) {
	it, debit, err := r.wishlist.Fulfill(ctx, actor, id, expected)
	if err != nil {
		return nil, nil, err
	}
	r.publish(ctx, it.FamilyID, "wishlist_item", "fulfilled", it.ID, map[string]any{"member_id": it.MemberID})
	if debit != nil {
		r.publishBalance(ctx, debit)
	}
	if r.notifier != nil && actor.MemberID != it.MemberID {
		r.notifier.WishFulfilled(it, debit)
	}
	return it, debit, nil
}

func (r *Registry) WishlistSettings(ctx context.Context, familyID int64) (model.WishlistSettings, error) {
	return r.wishlist.Settings(ctx, familyID)
}

func (r *Registry) UpdateWishlistSettings(ctx context.Context, actor auth.Actor, ws model.WishlistSettings) (model.WishlistSettings, error) {
	ws, err := r.wishlist.UpdateSettings(ctx, actor, ws)
	if err != nil {
		return ws, err
	}
	r.publish(ctx, actor.FamilyID, "settings", "updated", 0, map[string]any{"section": "wishlist"})
	return ws, nil
}
