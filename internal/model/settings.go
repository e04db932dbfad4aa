package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WishlistSettings is the per-family conversion rate and self-fulfillment
// ceiling. A nil SelfFulfillMaxPrice means no limit.
type WishlistSettings struct {
	Currency            string           `json:"currency"`
	PointsPerCurrency   decimal.Decimal  `json:"points_per_currency"`
	SelfFulfillMaxPrice *decimal.Decimal `json:"self_fulfill_max_price"`
}

type ChoreSettings struct {
	AllowZeroPoints bool `json:"allow_zero_points"`
}
