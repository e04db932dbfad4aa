package wishlist

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/marinda/internal/currency"
	"github.com/dukerupert/marinda/internal/model"
)

// Preview is what fulfilling an item would cost at the current settings.
type Preview struct {
	ItemID       int64           `json:"item_id"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Points       int64           `json:"points"`
	DisplayPrice string          `json:"display_price"`
	// SelfFulfillable is set when the owner could fulfill the item without a
	// parent.
	SelfFulfillable bool `json:"self_fulfillable"`
}

func (e *Engine) Preview(ctx context.Context, familyID, id int64) (*Preview, error) {
	it, err := e.Get(ctx, familyID, id)
	if err != nil {
		return nil, err
	}
	ws, err := e.settings.GetWishlistSettings(ctx, familyID)
	if err != nil {
		return nil, err
	}

	p := &Preview{ItemID: it.ID, Currency: ws.Currency}
	if it.Price != nil {
		p.Price = *it.Price
		if p.Points, err = currency.ToPoints(*it.Price, ws.PointsPerCurrency); err != nil {
			return nil, err
		}
	}
	if p.DisplayPrice, err = currency.Format(p.Price, ws.Currency); err != nil {
		return nil, err
	}

	p.SelfFulfillable = it.FulfillmentMode == model.FulfillBySelf
	if p.SelfFulfillable && ws.SelfFulfillMaxPrice != nil {
		limit, err := currency.ToPoints(*ws.SelfFulfillMaxPrice, ws.PointsPerCurrency)
		if err != nil {
			return nil, err
		}
		p.SelfFulfillable = p.Points <= limit
	}
	return p, nil
}

// PointsValue is the display price of a number of points.
type PointsValue struct {
	Points       int64           `json:"points"`
	Price        decimal.Decimal `json:"price"`
	DisplayPrice string          `json:"display_price"`
}

// PriceOf converts points to a display price at the family's rate.
func (e *Engine) PriceOf(ctx context.Context, familyID, points int64) (*PointsValue, error) {
	ws, err := e.settings.GetWishlistSettings(ctx, familyID)
	if err != nil {
		return nil, err
	}
	price, err := currency.ToPrice(points, ws.PointsPerCurrency, ws.Currency)
	if err != nil {
		return nil, err
	}
	display, err := currency.Format(price, ws.Currency)
	if err != nil {
		return nil, err
	}
	return &PointsValue{Points: points, Price: price, DisplayPrice: display}, nil
}
