package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/institut-pipeline/internal/usecase"
)

const defaultPageSize = 50

type LeadHandler struct {
	Leads        *usecase.LeadUseCase
	Interactions *usecase.InteractionUseCase
	Logger       *slog.Logger
}

func NewLeadHandler(leads *usecase.LeadUseCase, interactions *usecase.InteractionUseCase, log *slog.Logger) *LeadHandler {
	return &LeadHandler{Leads: leads, Interactions: interactions, Logger: log}
}

// Routes mounts the lead endpoints under the current router.
func (h *LeadHandler) Routes(r chi.Router) {
	r.Post("/leads", h.Create)
	r.Get("/leads", h.List)
	r.Route("/leads/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
		r.Put("/status", h.TransitionStatus)
		r.Put("/qualification", h.SetQualification)
		r.Delete("/qualification", h.ClearQualification)
		r.Put("/scoring", h.SetScoring)
		r.Post("/interactions", h.AppendInteraction)
		r.Get("/timeline", h.Timeline)
	})
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.ActorID = actor(r)

	lead, err := h.Leads.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	leads, err := h.Leads.List(r.Context(), usecase.ListLeadsInput{
		Statuses:   queryList(r, "status"),
		AssignedTo: r.URL.Query().Get("assignedTo"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.LeadID = chi.URLParam(r, "id")
	input.ActorID = actor(r)

	lead, err := h.Leads.Update(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Leads.Delete(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LeadHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	var input usecase.TransitionStatusInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.LeadID = chi.URLParam(r, "id")
	input.ActorID = actor(r)

	lead, err := h.Leads.TransitionStatus(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// SetQualification accepts {"qualification": "HOT"}; an explicit null clears.
func (h *LeadHandler) SetQualification(w http.ResponseWriter, r *http.Request) {
	var input usecase.SetQualificationInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.LeadID = chi.URLParam(r, "id")
	input.ActorID = actor(r)

	lead, err := h.Leads.SetQualification(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) ClearQualification(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Leads.ClearQualification(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) SetScoring(w http.ResponseWriter, r *http.Request) {
	var input usecase.SetScoringInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.LeadID = chi.URLParam(r, "id")
	input.ActorID = actor(r)

	lead, err := h.Leads.SetScoring(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) AppendInteraction(w http.ResponseWriter, r *http.Request) {
	var input usecase.AppendInteractionInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.LeadID = chi.URLParam(r, "id")
	input.AuthorID = actor(r)

	interaction, err := h.Interactions.Append(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, interaction)
}

func (h *LeadHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Interactions.Timeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
