package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/institut-pipeline/internal/usecase"
)

type ConversionHandler struct {
	Convert   *usecase.ConvertLeadUseCase
	Reconcile *usecase.ReconcileConversionsUseCase
	Logger    *slog.Logger
}

func NewConversionHandler(convert *usecase.ConvertLeadUseCase, reconcile *usecase.ReconcileConversionsUseCase, log *slog.Logger) *ConversionHandler {
	return &ConversionHandler{Convert: convert, Reconcile: reconcile, Logger: log}
}

func (h *ConversionHandler) Routes(r chi.Router) {
	r.Post("/leads/{id}/conversion", h.ConvertLead)
	r.Get("/conversions/stuck", h.Stuck)
	r.Post("/conversions/{intentId}/resume", h.Resume)
	r.Post("/conversions/{intentId}/abandon", h.Abandon)
}

// ConvertLead answers 201 with the one-time credentials. They are never
// retrievable again through this API.
func (h *ConversionHandler) ConvertLead(w http.ResponseWriter, r *http.Request) {
	var input usecase.ConvertLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.LeadID = chi.URLParam(r, "id")
	input.ActorID = actor(r)

	out, err := h.Convert.Execute(r.Context(), input)
	middleware.RecordConversion(conversionOutcome(err))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	if !out.NotificationSent {
		middleware.RecordNotificationFailure("onboarding")
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, out)
}

func (h *ConversionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	out, err := h.Convert.Resume(r.Context(), chi.URLParam(r, "intentId"), actor(r))
	if err != nil {
		middleware.RecordConversion(conversionOutcome(err))
		writeError(w, r, h.Logger, err)
		return
	}
	middleware.RecordConversion("resumed")
	if !out.NotificationSent {
		middleware.RecordNotificationFailure("onboarding")
	}
	writeJSON(w, http.StatusOK, out)
}

// Abandon releases a stale PENDING intent that provisioned nothing.
func (h *ConversionHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	intent, err := h.Convert.Abandon(r.Context(), chi.URLParam(r, "intentId"), actor(r))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	middleware.RecordConversion("abandoned")
	writeJSON(w, http.StatusOK, intent)
}

func (h *ConversionHandler) Stuck(w http.ResponseWriter, r *http.Request) {
	stuck, err := h.Reconcile.FindStuck(r.Context())
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	if stuck == nil {
		stuck = []*entity.ConversionIntent{}
	}
	writeJSON(w, http.StatusOK, stuck)
}

func conversionOutcome(err error) string {
	var (
		partial *usecase.PartialConversionError
		failed  *usecase.ProvisioningFailedError
	)
	switch {
	case err == nil:
		return "converted"
	case errors.As(err, &partial):
		return "partial"
	case errors.As(err, &failed):
		return "provisioning_failed"
	case errors.Is(err, entity.ErrInvalid):
		return "rejected"
	case errors.Is(err, entity.ErrConflict):
		return "conflict"
	case errors.Is(err, entity.ErrNotFound):
		return "not_found"
	}
	return "error"
}
