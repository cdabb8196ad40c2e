package handlers

import (
	"log/slog"
	"net/http"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

// PlanHandler exposes the plan catalog to the conversion form.
type PlanHandler struct {
	Plans  entity.PlanRepository
	Logger *slog.Logger
}

func NewPlanHandler(plans entity.PlanRepository, log *slog.Logger) *PlanHandler {
	return &PlanHandler{Plans: plans, Logger: log}
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Plans.List(r.Context())
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}
