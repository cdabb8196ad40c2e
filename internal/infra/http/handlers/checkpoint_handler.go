package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/institut-pipeline/internal/usecase"
)

type CheckpointHandler struct {
	Checkpoints *usecase.CheckpointUseCase
	Logger      *slog.Logger
}

func NewCheckpointHandler(uc *usecase.CheckpointUseCase, log *slog.Logger) *CheckpointHandler {
	return &CheckpointHandler{Checkpoints: uc, Logger: log}
}

func (h *CheckpointHandler) Routes(r chi.Router) {
	r.Put("/checkpoints/{workflowId}", h.Save)
	r.Get("/checkpoints/{workflowId}", h.Resume)
	r.Delete("/checkpoints/{workflowId}", h.Clear)
}

func (h *CheckpointHandler) Save(w http.ResponseWriter, r *http.Request) {
	var input usecase.SaveCheckpointInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.WorkflowID = chi.URLParam(r, "workflowId")
	input.ActorID = actor(r)

	cp, err := h.Checkpoints.Save(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func (h *CheckpointHandler) Resume(w http.ResponseWriter, r *http.Request) {
	cp, err := h.Checkpoints.Resume(r.Context(), chi.URLParam(r, "workflowId"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func (h *CheckpointHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Checkpoints.Clear(r.Context(), chi.URLParam(r, "workflowId")); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
