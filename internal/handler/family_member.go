package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/registry"
	"github.com/dukerupert/marinda/internal/store"
)

const maxBodyBytes = 1 << 20

type FamilyMemberHandler struct {
	reg     *registry.Registry
	members *store.FamilyMemberStore
	logger  *slog.Logger
}

func NewFamilyMemberHandler(reg *registry.Registry, members *store.FamilyMemberStore, logger *slog.Logger) *FamilyMemberHandler {
	return &FamilyMemberHandler{reg: reg, members: members, logger: logger}
}

// List handles GET /api/members. Members come back highest balance first.
func (h *FamilyMemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.reg.Balances(r.Context(), auth.FamilyID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// Ledger handles GET /api/members/{id}/ledger.
func (h *FamilyMemberHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	limit, err := queryInt64(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	since, err := queryTime(r, "since")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	entries, err := h.reg.History(r.Context(), auth.FamilyID(r.Context()), id, int(limit), since)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type adjustRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

// Adjust handles POST /api/members/{id}/adjustments.
func (h *FamilyMemberHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req adjustRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	entry, err := h.reg.AdjustPoints(r.Context(), actorOf(r), id, req.Delta, req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Reconcile handles GET /api/ledger/reconcile. Drift is reported with the
// Consistency error body so an operator can see which balances disagree.
func (h *FamilyMemberHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	drift, err := h.reg.Reconcile(r.Context(), actorOf(r))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConsistency {
			writeJSON(w, http.StatusInternalServerError, errorBody{
				Error: apperr.Message(err),
				Kind:  apperr.KindConsistency,
				Drift: drift,
			})
			return
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "drift": []model.BalanceDrift{}})
}

// PointsValue handles GET /api/points/value?points=N.
func (h *FamilyMemberHandler) PointsValue(w http.ResponseWriter, r *http.Request) {
	points, err := queryInt64(r, "points")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	v, err := h.reg.PointsValue(r.Context(), auth.FamilyID(r.Context()), points)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetPIN handles POST /api/members/{id}/pin. Members set their own PIN;
// parents may also set the PIN of any non-parent member.
func (h *FamilyMemberHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id, err := h.pinTarget(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if len(req.PIN) != 4 || !isDigits(req.PIN) {
		writeError(w, h.logger, apperr.New(apperr.KindInvalidInput, "PIN must be exactly 4 digits"))
		return
	}

	if err := h.members.SetPIN(r.Context(), id, req.PIN); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}

// ClearPIN handles DELETE /api/members/{id}/pin.
func (h *FamilyMemberHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	id, err := h.pinTarget(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.members.ClearPIN(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin cleared"})
}

func (h *FamilyMemberHandler) pinTarget(r *http.Request) (int64, error) {
	id, err := parseIDParam(r)
	if err != nil {
		return 0, err
	}
	actor := actorOf(r)
	if id != actor.MemberID && !actor.Role.IsParent() {
		return 0, apperr.New(apperr.KindUnauthorized, "only parents may change another member's PIN")
	}
	m, err := h.members.GetInFamily(r.Context(), actor.FamilyID, id)
	if err != nil {
		return 0, err
	}
	if m == nil {
		return 0, apperr.New(apperr.KindNotFound, "member %d not found", id)
	}
	// Each parent's PIN guards their own approvals.
	if id != actor.MemberID && m.Role.IsParent() {
		return 0, apperr.New(apperr.KindUnauthorized, "parents may only change their own PIN")
	}
	return id, nil
}

type errorBody struct {
	Error string               `json:"error"`
	Kind  apperr.Kind          `json:"kind"`
	Drift []model.BalanceDrift `json:"drift,omitempty"`
}

// writeError maps err to its HTTP status. Internal details never reach the
// client; they are logged instead.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "kind", kind, "error", err)
	}
	writeJSON(w, status, errorBody{Error: apperr.Message(err), Kind: kind})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.New(apperr.KindInvalidInput, "request body too large")
		}
		return apperr.New(apperr.KindInvalidInput, "invalid JSON")
	}
	return nil
}

func actorOf(r *http.Request) auth.Actor {
	a, _ := auth.FromContext(r.Context())
	return a
}

func parseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.KindInvalidInput, "invalid id")
	}
	return id, nil
}

// queryInt64 returns 0 when the parameter is absent.
func queryInt64(r *http.Request, name string) (int64, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.KindInvalidInput, "%s must be an integer", name)
	}
	return n, nil
}

// queryTime parses an RFC 3339 timestamp, returning nil when absent.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "%s must be an RFC 3339 timestamp", name)
	}
	u := t.UTC()
	return &u, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
