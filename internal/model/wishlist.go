package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type WishlistStatus string

const (
	WishlistOpen      WishlistStatus = "open"
	WishlistFulfilled WishlistStatus = "fulfilled"
)

type FulfillmentMode string

const (
	FulfillByParents FulfillmentMode = "parents"
	FulfillBySelf    FulfillmentMode = "self"
)

type WishlistItem struct {
	ID              int64            `json:"id"`
	FamilyID        int64            `json:"family_id"`
	MemberID        int64            `json:"member_id"`
	Title           string           `json:"title"`
	Price           *decimal.Decimal `json:"price"`
	Status          WishlistStatus   `json:"status"`
	FulfillmentMode FulfillmentMode  `json:"fulfillment_mode"`
	PaymentMethod   string           `json:"payment_method"`
	FulfilledBy     *int64           `json:"fulfilled_by"`
	FulfilledAt     *time.Time       `json:"fulfilled_at"`
	Version         int64            `json:"version"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
