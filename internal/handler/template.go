package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/registry"
)

type TemplateHandler struct {
	reg    *registry.Registry
	logger *slog.Logger
}

func NewTemplateHandler(reg *registry.Registry, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{reg: reg, logger: logger}
}

type templateRequest struct {
	Title         string `json:"title"`
	DefaultPoints *int64 `json:"default_points"`
}

func (req templateRequest) points() (int64, error) {
	if req.DefaultPoints == nil {
		return 0, apperr.New(apperr.KindInvalidInput, "default_points is required")
	}
	return *req.DefaultPoints, nil
}

// List handles GET /api/chore-templates?include_archived=true.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	templates, err := h.reg.ListTemplates(r.Context(), auth.FamilyID(r.Context()), includeArchived)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	points, err := req.points()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	t, err := h.reg.CreateTemplate(r.Context(), actorOf(r), req.Title, points)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req templateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	points, err := req.points()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	t, err := h.reg.UpdateTemplate(r.Context(), actorOf(r), id, req.Title, points)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TemplateHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

func (h *TemplateHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *TemplateHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	t, err := h.reg.SetTemplateArchived(r.Context(), actorOf(r), id, archived)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
