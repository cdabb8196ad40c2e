package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/institut-pipeline/internal/usecase"
)

type DemoHandler struct {
	Scheduler *usecase.DemoScheduler
	Location  *time.Location
	Logger    *slog.Logger
}

func NewDemoHandler(scheduler *usecase.DemoScheduler, loc *time.Location, log *slog.Logger) *DemoHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DemoHandler{Scheduler: scheduler, Location: loc, Logger: log}
}

func (h *DemoHandler) Routes(r chi.Router) {
	r.Post("/demo/slots", h.CreateSlot)
	r.Get("/demo/slots", h.ListSlots)
	r.Post("/demo/slots/{id}/bookings", h.Book)
	r.Post("/demo/bookings/{id}/cancel", h.Cancel)
	r.Post("/demo/bookings/{id}/complete", h.Complete)
}

func (h *DemoHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateSlotInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.ActorID = actor(r)

	slot, err := h.Scheduler.CreateSlot(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

// ListSlots returns the bookable slots, flat or grouped by day with
// ?groupBy=date. ?tz overrides the display timezone for grouping.
func (h *DemoHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch q.Get("groupBy") {
	case "":
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		slots, err := h.Scheduler.ListAvailableSlots(r.Context(), limit)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		if slots == nil {
			slots = []entity.DemoSlot{}
		}
		writeJSON(w, http.StatusOK, slots)
	case "date":
		loc := h.Location
		if tz := q.Get("tz"); tz != "" {
			l, err := time.LoadLocation(tz)
			if err != nil {
				writeError(w, r, h.Logger, badQuery("tz", "unknown timezone"))
				return
			}
			loc = l
		}
		days, err := h.Scheduler.AvailableSlotsByDate(r.Context(), loc)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		if days == nil {
			days = []entity.SlotDay{}
		}
		writeJSON(w, http.StatusOK, days)
	default:
		writeError(w, r, h.Logger, badQuery("groupBy", "only \"date\" is supported"))
	}
}

func (h *DemoHandler) Book(w http.ResponseWriter, r *http.Request) {
	var input usecase.BookSlotInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.SlotID = chi.URLParam(r, "id")
	input.ActorID = actor(r)

	booking, err := h.Scheduler.Book(r.Context(), input)
	middleware.RecordBooking(bookingOutcome(err))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (h *DemoHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Scheduler.Cancel(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	middleware.RecordBooking("cancelled")
	writeJSON(w, http.StatusOK, booking)
}

func (h *DemoHandler) Complete(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Scheduler.Complete(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	middleware.RecordBooking("completed")
	writeJSON(w, http.StatusOK, booking)
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return "booked"
	case errors.Is(err, entity.ErrSlotUnavailable), errors.Is(err, entity.ErrLeadAlreadyBooked):
		return "conflict"
	case errors.Is(err, entity.ErrInvalid), errors.Is(err, entity.ErrNotFound):
		return "rejected"
	}
	return "error"
}
