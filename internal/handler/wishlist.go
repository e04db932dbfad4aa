package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/registry"
	"github.com/dukerupert/marinda/internal/wishlist"
)

type WishlistHandler struct {
	reg    *registry.Registry
	logger *slog.Logger
}

func NewWishlistHandler(reg *registry.Registry, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{reg: reg, logger: logger}
}

// wishRequest creates or edits an item. A zero MemberID means the caller's
// own list.
type wishRequest struct {
	MemberID        int64                 `json:"member_id"`
	Title           string                `json:"title"`
	Price           *decimal.Decimal      `json:"price"`
	FulfillmentMode model.FulfillmentMode `json:"fulfillment_mode"`
	PaymentMethod   string                `json:"payment_method"`
	Version         int64                 `json:"version"`
}

func (req wishRequest) input(actor auth.Actor) wishlist.ItemInput {
	memberID := req.MemberID
	if memberID == 0 {
		memberID = actor.MemberID
	}
	return wishlist.ItemInput{
		MemberID:        memberID,
		Title:           req.Title,
		Price:           req.Price,
		FulfillmentMode: req.FulfillmentMode,
		PaymentMethod:   req.PaymentMethod,
		Version:         req.Version,
	}
}

// List handles GET /api/wishlist?member_id=&status=.
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	memberID, err := queryInt64(r, "member_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	status := model.WishlistStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
	switch status {
	case "", model.WishlistOpen, model.WishlistFulfilled:
	default:
		writeError(w, h.logger, apperr.New(apperr.KindInvalidInput, "unknown status %q", status))
		return
	}

	items, err := h.reg.ListWishes(r.Context(), auth.FamilyID(r.Context()), memberID, status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *WishlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req wishRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	actor := actorOf(r)
	it, err := h.reg.AddWish(r.Context(), actor, req.input(actor))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (h *WishlistHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req wishRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	actor := actorOf(r)
	it, err := h.reg.UpdateWish(r.Context(), actor, id, req.input(actor))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *WishlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.reg.DeleteWish(r.Context(), actorOf(r), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles GET /api/wishlist/{id}/preview: the item's cost in points
// at the family's current rate.
func (h *WishlistHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.reg.PreviewWish(r.Context(), auth.FamilyID(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Fulfill handles POST /api/wishlist/{id}/fulfill. ExpectedStatus defaults
// to open.
func (h *WishlistHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req struct {
		ExpectedStatus model.WishlistStatus `json:"expected_status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	expected := model.WishlistStatus(strings.ToLower(string(req.ExpectedStatus)))
	if expected == "" {
		expected = model.WishlistOpen
	}

	it, debit, err := h.reg.FulfillWish(r.Context(), actorOf(r), id, expected)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": it, "debit": debit})
}
