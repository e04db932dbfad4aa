package wishlist

import (
	"context"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/currency"
	"github.com/dukerupert/marinda/internal/model"
)

func (e *Engine) Settings(ctx context.Context, familyID int64) (model.WishlistSettings, error) {
	return e.settings.GetWishlistSettings(ctx, familyID)
}

// UpdateSettings replaces the family's currency, rate and self-fulfillment
// ceiling. Fulfillments read settings afresh, so changes apply immediately.
func (e *Engine) UpdateSettings(ctx context.Context, actor auth.Actor, ws model.WishlistSettings) (model.WishlistSettings, error) {
	if err := auth.Require(actor.Role, auth.OpSettingsUpdate); err != nil {
		return model.WishlistSettings{}, err
	}
	code, err := currency.Normalize(ws.Currency)
	if err != nil {
		return model.WishlistSettings{}, err
	}
	ws.Currency = code
	if !ws.PointsPerCurrency.IsPositive() {
		return model.WishlistSettings{}, apperr.New(apperr.KindInvalidRate,
			"points_per_currency must be greater than zero, got %s", ws.PointsPerCurrency)
	}
	if ws.SelfFulfillMaxPrice != nil && ws.SelfFulfillMaxPrice.IsNegative() {
		return model.WishlistSettings{}, apperr.New(apperr.KindInvalidInput, "self_fulfill_max_price must not be negative")
	}
	if err := e.settings.SetWishlistSettings(ctx, actor.FamilyID, ws); err != nil {
		return model.WishlistSettings{}, err
	}
	e.logger.Info("wishlist settings updated",
		"family_id", actor.FamilyID, "currency", ws.Currency, "rate", ws.PointsPerCurrency.String())
	return e.settings.GetWishlistSettings(ctx, actor.FamilyID)
}
