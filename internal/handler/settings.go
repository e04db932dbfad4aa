package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/registry"
)

type SettingsHandler struct {
	reg    *registry.Registry
	logger *slog.Logger
}

func NewSettingsHandler(reg *registry.Registry, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{reg: reg, logger: logger}
}

func (h *SettingsHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	ws, err := h.reg.WishlistSettings(r.Context(), auth.FamilyID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// UpdateWishlist replaces the conversion rate, currency and self-fulfill
// ceiling. Omitting self_fulfill_max_price removes the ceiling.
func (h *SettingsHandler) UpdateWishlist(w http.ResponseWriter, r *http.Request) {
	var req model.WishlistSettings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	ws, err := h.reg.UpdateWishlistSettings(r.Context(), actorOf(r), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (h *SettingsHandler) GetChores(w http.ResponseWriter, r *http.Request) {
	cs, err := h.reg.ChoreSettings(r.Context(), auth.FamilyID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *SettingsHandler) UpdateChores(w http.ResponseWriter, r *http.Request) {
	var req model.ChoreSettings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	cs, err := h.reg.UpdateChoreSettings(r.Context(), actorOf(r), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}
