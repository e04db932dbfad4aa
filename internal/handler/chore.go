package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/chore"
	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/registry"
)

type ChoreHandler struct {
	reg    *registry.Registry
	logger *slog.Logger
}

func NewChoreHandler(reg *registry.Registry, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{reg: reg, logger: logger}
}

type choreRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Points        *int64     `json:"points"`
	AssignedToIDs []int64    `json:"assigned_to_ids"`
	ExpiresAt     *time.Time `json:"expires_at"`
	TemplateID    *int64     `json:"template_id"`
	Version       int64      `json:"version"`
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.reg.CreateChore(r.Context(), actorOf(r), chore.CreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Points:        req.Points,
		AssignedToIDs: req.AssignedToIDs,
		ExpiresAt:     req.ExpiresAt,
		TemplateID:    req.TemplateID,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseChoreFilter(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	chores, err := h.reg.ListChores(r.Context(), auth.FamilyID(r.Context()), f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chores)
}

func parseChoreFilter(r *http.Request) (model.ChoreFilter, error) {
	var f model.ChoreFilter
	if s := strings.TrimSpace(r.URL.Query().Get("status")); s != "" {
		st, err := model.ParseChoreStatus(strings.ToUpper(s))
		if err != nil {
			return f, apperr.New(apperr.KindInvalidInput, "unknown status %q", s)
		}
		f.Status = st
	}

	var err error
	if f.AssignedTo, err = queryInt64(r, "assigned_to"); err != nil {
		return f, err
	}
	if f.DoneBy, err = queryInt64(r, "done_by"); err != nil {
		return f, err
	}
	if f.CreatedBy, err = queryInt64(r, "created_by"); err != nil {
		return f, err
	}
	if f.UpdatedSince, err = queryTime(r, "updated_since"); err != nil {
		return f, err
	}
	limit, err := queryInt64(r, "limit")
	if err != nil {
		return f, err
	}
	if limit < 0 {
		return f, apperr.New(apperr.KindInvalidInput, "limit must not be negative")
	}
	f.Limit = int(limit)
	return f, nil
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, err := h.reg.GetChore(r.Context(), auth.FamilyID(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req choreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Points == nil {
		writeError(w, h.logger, apperr.New(apperr.KindInvalidInput, "points is required"))
		return
	}

	c, err := h.reg.UpdateChore(r.Context(), actorOf(r), id, chore.UpdateInput{
		Title:         req.Title,
		Description:   req.Description,
		Points:        *req.Points,
		AssignedToIDs: req.AssignedToIDs,
		ExpiresAt:     req.ExpiresAt,
		Version:       req.Version,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.reg.DeleteChore(r.Context(), actorOf(r), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type submitRequest struct {
	DoneByIDs []int64       `json:"done_by_ids"`
	Proofs    []model.Proof `json:"proofs"`
}

// Submit handles POST /api/chores/{id}/submit.
func (h *ChoreHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.reg.SubmitChore(r.Context(), actorOf(r), id, req.DoneByIDs, req.Proofs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// reviewRequest is the body of approve and reject. ExpectedStatus defaults
// to SUBMITTED.
type reviewRequest struct {
	ExpectedStatus model.ChoreStatus `json:"expected_status"`
	Notes          *string           `json:"notes"`
}

func (req *reviewRequest) expected() model.ChoreStatus {
	if req.ExpectedStatus == "" {
		return model.ChoreSubmitted
	}
	return model.ChoreStatus(strings.ToUpper(string(req.ExpectedStatus)))
}

// Approve handles POST /api/chores/{id}/approve. The response carries the
// ledger entries written for each doer.
func (h *ChoreHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, credits, err := h.reg.ApproveChore(r.Context(), actorOf(r), id, req.expected(), req.Notes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if credits == nil {
		credits = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chore": c, "credits": credits})
}

// Reject handles POST /api/chores/{id}/reject.
func (h *ChoreHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.reg.RejectChore(r.Context(), actorOf(r), id, req.expected(), req.Notes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Sweep handles POST /api/chores/sweep, an on-demand expiry pass.
func (h *ChoreHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.reg.SweepChores(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"expired": n})
}

// ExpiredReport handles GET /api/reports/expired-chores.
func (h *ChoreHandler) ExpiredReport(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "from")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if from == nil || to == nil {
		writeError(w, h.logger, apperr.New(apperr.KindInvalidInput, "from and to are required"))
		return
	}
	g := chore.Granularity(r.URL.Query().Get("granularity"))
	if g == "" {
		g = chore.ByDay
	}

	counts, err := h.reg.ExpiredReport(r.Context(), auth.FamilyID(r.Context()), *from, *to, g)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if counts == nil {
		counts = []model.ExpiredCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"granularity": g, "counts": counts})
}
