package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/push"
	"github.com/dukerupert/marinda/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	service   *push.Service
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, logger: logger}
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)

	var req subscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, h.logger, apperr.New(apperr.KindInvalidInput, "endpoint, p256dh, and auth are required"))
		return
	}
	if !strings.HasPrefix(req.Endpoint, "https://") {
		writeError(w, h.logger, apperr.New(apperr.KindInvalidInput, "endpoint must be an https URL"))
		return
	}

	sub, err := h.pushStore.CreateSubscription(r.Context(), actor.FamilyID, actor.MemberID, req.Endpoint, req.P256dh, req.Auth, r.UserAgent())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	ok, err := h.pushStore.DeleteSubscription(r.Context(), actor.FamilyID, actor.MemberID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.KindNotFound, "subscription %d not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}
