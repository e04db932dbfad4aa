// Package wishlist manages members' wishlist items and their fulfillment,
// which debits the owner's points at the family's conversion rate.
package wishlist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/currency"
	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/store"
	"github.com/dukerupert/marinda/internal/telemetry"
)

const (
	maxTitleLen         = 200
	maxPaymentMethodLen = 200
)

type Engine struct {
	items    *store.WishlistStore
	members  *store.FamilyMemberStore
	settings *store.SettingsStore
	logger   *slog.Logger
	Now      func() time.Time
}

func NewEngine(items *store.WishlistStore, members *store.FamilyMemberStore, settings *store.SettingsStore, logger *slog.Logger) *Engine {
	return &Engine{
		items:    items,
		members:  members,
		settings: settings,
		logger:   logger.With("component", "wishlist"),
		Now:      time.Now,
	}
}

// ItemInput is the editable part of a wishlist item. MemberID selects the
// owner on Add; zero means the actor.
type ItemInput struct {
	MemberID        int64
	Title           string
	Price           *decimal.Decimal
	FulfillmentMode model.FulfillmentMode
	PaymentMethod   string
	Version         int64
}

func (in *ItemInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if in.Title == "" {
		return apperr.New(apperr.KindInvalidInput, "title is required")
	}
	if len(in.Title) > maxTitleLen {
		return apperr.New(apperr.KindInvalidInput, "title must be at most %d characters", maxTitleLen)
	}
	if in.Price != nil && in.Price.IsNegative() {
		return apperr.New(apperr.KindInvalidInput, "price must not be negative")
	}
	switch in.FulfillmentMode {
	case "":
		in.FulfillmentMode = model.FulfillByParents
	case model.FulfillByParents, model.FulfillBySelf:
	default:
		return apperr.New(apperr.KindInvalidInput, "fulfillment_mode must be parents or self")
	}
	if in.FulfillmentMode == model.FulfillByParents {
		in.PaymentMethod = ""
	}
	if len(in.PaymentMethod) > maxPaymentMethodLen {
		return apperr.New(apperr.KindInvalidInput, "payment_method must be at most %d characters", maxPaymentMethodLen)
	}
	return nil
}

// canManage reports whether actor may edit items owned by ownerID.
func canManage(actor auth.Actor, ownerID int64) bool {
	return actor.MemberID == ownerID || auth.Allowed(actor.Role, auth.OpWishlistManageAny)
}

func (e *Engine) Add(ctx context.Context, actor auth.Actor, in ItemInput) (*model.WishlistItem, error) {
	if in.MemberID == 0 {
		in.MemberID = actor.MemberID
	}
	if !canManage(actor, in.MemberID) {
		return nil, apperr.New(apperr.KindUnauthorized, "only parents may add items for other members")
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	owner, err := e.members.GetInFamily(ctx, actor.FamilyID, in.MemberID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, apperr.New(apperr.KindInvalidInput, "member %d is not in this family", in.MemberID)
	}

	it, err := e.items.Create(ctx, &model.WishlistItem{
		FamilyID:        actor.FamilyID,
		MemberID:        in.MemberID,
		Title:           in.Title,
		Price:           in.Price,
		FulfillmentMode: in.FulfillmentMode,
		PaymentMethod:   in.PaymentMethod,
		CreatedAt:       e.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("wishlist item added", "family_id", actor.FamilyID, "item_id", it.ID, "member_id", it.MemberID)
	return it, nil
}

func (e *Engine) Get(ctx context.Context, familyID, id int64) (*model.WishlistItem, error) {
	it, err := e.items.GetByID(ctx, familyID, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, apperr.New(apperr.KindNotFound, "wishlist item %d not found", id)
	}
	return it, nil
}

func (e *Engine) List(ctx context.Context, familyID, memberID int64, status model.WishlistStatus) ([]model.WishlistItem, error) {
	items, err := e.items.List(ctx, familyID, memberID, status)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.WishlistItem{}
	}
	return items, nil
}

// Update edits an open item. A zero Version skips the staleness check.
func (e *Engine) Update(ctx context.Context, actor auth.Actor, id int64, in ItemInput) (*model.WishlistItem, error) {
	it, err := e.editable(ctx, actor, id, in.Version)
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	it.Title = in.Title
	it.Price = in.Price
	it.FulfillmentMode = in.FulfillmentMode
	it.PaymentMethod = in.PaymentMethod
	if err := e.items.Update(ctx, it, it.Version, e.Now().UTC()); err != nil {
		return nil, err
	}
	return e.Get(ctx, actor.FamilyID, id)
}

func (e *Engine) Delete(ctx context.Context, actor auth.Actor, id int64) error {
	it, err := e.editable(ctx, actor, id, 0)
	if err != nil {
		return err
	}
	if err := e.items.Delete(ctx, actor.FamilyID, id, it.Version); err != nil {
		return err
	}
	e.logger.Info("wishlist item deleted", "family_id", actor.FamilyID, "item_id", id, "by", actor.MemberID)
	return nil
}

func (e *Engine) editable(ctx context.Context, actor auth.Actor, id, version int64) (*model.WishlistItem, error) {
	it, err := e.Get(ctx, actor.FamilyID, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, it.MemberID) {
		return nil, apperr.New(apperr.KindUnauthorized, "only the owner or a parent may change item %d", id)
	}
	if it.Status != model.WishlistOpen {
		return nil, apperr.New(apperr.KindInvalidTransition, "wishlist item %d is %s", id, it.Status)
	}
	if version != 0 && version != it.Version {
		return nil, apperr.New(apperr.KindStaleState, "wishlist item %d has changed", id)
	}
	return it, nil
}

// Fulfill marks an open item fulfilled and debits the owner the item's
// price in points. Parents may fulfill any item. In self mode the owner
// may fulfill their own item if its points cost does not exceed the cost of
// the family's self-fulfillment ceiling. Balances may go negative.
func (e *Engine) Fulfill(ctx context.Context, actor auth.Actor, id int64, expectedStatus model.WishlistStatus) (_ *model.WishlistItem, _ *model.LedgerEntry, err error) {
	ctx, span := telemetry.Start(ctx, "wishlist.fulfill",
		attribute.Int64("item_id", id), attribute.Int64("actor_id", actor.MemberID))
	defer func() { telemetry.End(span, err) }()

	it, err := e.Get(ctx, actor.FamilyID, id)
	if err != nil {
		return nil, nil, err
	}
	if it.Status == model.WishlistFulfilled {
		return nil, nil, apperr.New(apperr.KindAlreadyFulfilled, "wishlist item %d is already fulfilled", id)
	}
	if expectedStatus != "" && expectedStatus != it.Status {
		return nil, nil, apperr.New(apperr.KindStaleState, "wishlist item %d is %s, expected %s", id, it.Status, expectedStatus)
	}

	ws, err := e.settings.GetWishlistSettings(ctx, actor.FamilyID)
	if err != nil {
		return nil, nil, err
	}
	var cost int64
	if it.Price != nil {
		if cost, err = currency.ToPoints(*it.Price, ws.PointsPerCurrency); err != nil {
			return nil, nil, err
		}
	}

	switch {
	case auth.Allowed(actor.Role, auth.OpWishlistFulfillAny):
	case it.FulfillmentMode == model.FulfillBySelf && actor.MemberID == it.MemberID:
		if ws.SelfFulfillMaxPrice != nil {
			limit, err := currency.ToPoints(*ws.SelfFulfillMaxPrice, ws.PointsPerCurrency)
			if err != nil {
				return nil, nil, err
			}
			if cost > limit {
				return nil, nil, apperr.New(apperr.KindOverSelfFulfillLimit,
					"item costs %d points; self-fulfillment is limited to %d", cost, limit)
			}
		}
	case it.FulfillmentMode == model.FulfillBySelf:
		return nil, nil, apperr.New(apperr.KindUnauthorized, "only the owner or a parent may fulfill item %d", id)
	default:
		return nil, nil, apperr.New(apperr.KindUnauthorized, "only parents may fulfill item %d", id)
	}

	now := e.Now().UTC()
	var debit *model.LedgerEntry
	if cost > 0 {
		approver := actor.MemberID
		debit = &model.LedgerEntry{
			FamilyID:           actor.FamilyID,
			MemberID:           it.MemberID,
			Delta:              -cost,
			Reason:             fmt.Sprintf("wishlist:%d", it.ID),
			Kind:               model.LedgerWishlistFulfillment,
			ApprovedByMemberID: &approver,
			CreatedAt:          now,
		}
	}
	if err := e.items.MarkFulfilled(ctx, actor.FamilyID, id, it.Version, actor.MemberID, now, debit); err != nil {
		return nil, nil, err
	}
	e.logger.Info("wishlist item fulfilled",
		"family_id", actor.FamilyID, "item_id", id, "member_id", it.MemberID, "by", actor.MemberID, "points", cost)

	updated, err := e.Get(ctx, actor.FamilyID, id)
	if err != nil {
		return nil, nil, err
	}
	return updated, debit, nil
}
