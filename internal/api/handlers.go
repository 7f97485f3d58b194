package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bootplan/internal/models"
	"github.com/starford/bootplan/internal/planservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *planservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *planservice.Service) *Handler {
	return &Handler{svc: svc}
}

// GetPlan handles GET /api/plan.
//
//	@Summary		Get the current boot plan
//	@Tags			plan
//	@Produce		json
//	@Success		200	{object}	PlanResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plan [get]
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, rec, err := h.svc.Current(r.Context())
	if err != nil {
		writeServiceError(w, "get plan", err)
		return
	}
	writeJSON(w, http.StatusOK, PlanResponse{Record: rec, Plan: plan})
}

// Compile handles POST /api/plan/compile.
//
//	@Summary		Recompile the application layout
//	@Tags			plan
//	@Produce		json
//	@Success		200	{object}	CompileResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plan/compile [post]
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Compile(r.Context())
	if err != nil {
		writeServiceError(w, "compile plan", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListModels handles GET /api/plan/models.
//
//	@Summary		List model instructions in plan order
//	@Tags			plan
//	@Produce		json
//	@Success		200	{object}	ModelListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plan/models [get]
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	plan, _, err := h.svc.Current(r.Context())
	if err != nil {
		writeServiceError(w, "list models", err)
		return
	}
	items := plan.Models
	if items == nil {
		items = []models.ModelInstruction{}
	}
	writeJSON(w, http.StatusOK, ModelListResponse{Models: items})
}

// GetModel handles GET /api/plan/models/{name}.
//
//	@Summary		Get one model instruction
//	@Tags			plan
//	@Produce		json
//	@Param			name	path		string	true	"Model name"
//	@Success		200		{object}	models.ModelInstruction
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plan/models/{name} [get]
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	plan, _, err := h.svc.Current(r.Context())
	if err != nil {
		writeServiceError(w, "get model", err)
		return
	}
	m, ok := plan.Model(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ListMixins handles GET /api/plan/mixins.
//
//	@Summary		List mixin instructions
//	@Tags			plan
//	@Produce		json
//	@Success		200	{object}	MixinListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plan/mixins [get]
func (h *Handler) ListMixins(w http.ResponseWriter, r *http.Request) {
	plan, _, err := h.svc.Current(r.Context())
	if err != nil {
		writeServiceError(w, "list mixins", err)
		return
	}
	items := plan.Mixins
	if items == nil {
		items = []models.MixinInstruction{}
	}
	writeJSON(w, http.StatusOK, MixinListResponse{Mixins: items})
}

// ListBootScripts handles GET /api/plan/boot.
//
//	@Summary		List boot scripts in execution order
//	@Tags			plan
//	@Produce		json
//	@Success		200	{object}	BootListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plan/boot [get]
func (h *Handler) ListBootScripts(w http.ResponseWriter, r *http.Request) {
	plan, _, err := h.svc.Current(r.Context())
	if err != nil {
		writeServiceError(w, "list boot scripts", err)
		return
	}
	items := plan.Files.Boot
	if items == nil {
		items = []string{}
	}
	writeJSON(w, http.StatusOK, BootListResponse{Boot: items})
}

// History handles GET /api/plans.
//
//	@Summary		List compiled plans, newest first
//	@Tags			history
//	@Produce		json
//	@Param			limit	query		int	false	"Page size (max 500)"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/plans [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	recs, total, err := h.svc.History(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, "list plans", err)
		return
	}
	if recs == nil {
		recs = []PlanRecord{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Plans: recs, Total: total})
}

// GetSnapshot handles GET /api/plans/{id}.
//
//	@Summary		Get a historical plan by id
//	@Tags			history
//	@Produce		json
//	@Param			id	path		int	true	"Plan id"
//	@Success		200	{object}	PlanResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans/{id} [get]
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid plan id"))
		return
	}
	plan, rec, err := h.svc.Snapshot(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get plan snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, PlanResponse{Record: rec, Plan: plan})
}
