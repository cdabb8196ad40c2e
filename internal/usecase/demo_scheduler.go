package usecase

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/logger"
)

const defaultSlotPageSize = 50

// DemoScheduler publishes demo slots and books them. Slot exclusivity is
// enforced by the repository, never by a read-then-write here.
type DemoScheduler struct {
	Demos    entity.DemoRepository
	Leads    entity.LeadRepository
	Logger   *slog.Logger
	Now      func() time.Time
	PageSize int
}

func NewDemoScheduler(demos entity.DemoRepository, leads entity.LeadRepository, log *slog.Logger) *DemoScheduler {
	if log == nil {
		log = slog.Default()
	}
	return &DemoScheduler{Demos: demos, Leads: leads, Logger: log, Now: time.Now, PageSize: defaultSlotPageSize}
}

func (s *DemoScheduler) CreateSlot(ctx context.Context, input CreateSlotInput) (*entity.DemoSlot, error) {
	now := s.Now().UTC()
	if !input.Date.IsZero() && !input.Date.After(now) {
		return nil, ValidationErrors{{Field: "date", Message: "must be in the future"}}
	}
	slot, err := entity.NewDemoSlot(input.Date, input.DurationMinutes, input.ActorID, now)
	if err != nil {
		return nil, err
	}
	if err := s.Demos.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// AvailableSlots lazily walks the open slots dated after now, ascending. The
// sequence is finite and each range over it starts from the beginning.
func (s *DemoScheduler) AvailableSlots(ctx context.Context, now time.Time) iter.Seq2[entity.DemoSlot, error] {
	size := s.PageSize
	if size <= 0 {
		size = defaultSlotPageSize
	}
	return func(yield func(entity.DemoSlot, error) bool) {
		var cursor entity.SlotCursor
		for {
			page, err := s.Demos.ListOpenSlots(ctx, now, cursor, size)
			if err != nil {
				yield(entity.DemoSlot{}, err)
				return
			}
			for _, slot := range page {
				if !yield(slot, nil) {
					return
				}
			}
			if len(page) < size {
				return
			}
			last := page[len(page)-1]
			cursor = entity.SlotCursor{Date: last.Date, ID: last.ID}
		}
	}
}

// ListAvailableSlots collects AvailableSlots up to limit (0 means all).
func (s *DemoScheduler) ListAvailableSlots(ctx context.Context, limit int) ([]entity.DemoSlot, error) {
	var slots []entity.DemoSlot
	for slot, err := range s.AvailableSlots(ctx, s.Now().UTC()) {
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
		if limit > 0 && len(slots) == limit {
			break
		}
	}
	return slots, nil
}

// AvailableSlotsByDate groups the open slots by calendar day in loc.
func (s *DemoScheduler) AvailableSlotsByDate(ctx context.Context, loc *time.Location) ([]entity.SlotDay, error) {
	slots, err := s.ListAvailableSlots(ctx, 0)
	if err != nil {
		return nil, err
	}
	return entity.GroupSlotsByDate(slots, loc), nil
}

// Book reserves a slot for a lead. Booking does not change the lead status.
func (s *DemoScheduler) Book(ctx context.Context, input BookSlotInput) (*entity.DemoBooking, error) {
	typ, err := entity.ParseBookingType(input.Type)
	if err != nil {
		return nil, err
	}

	if _, err := s.Leads.FindByID(ctx, input.LeadID); err != nil {
		return nil, err
	}
	slot, err := s.Demos.FindSlot(ctx, input.SlotID)
	if err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	if !slot.IsAvailable || !slot.Date.After(now) {
		return nil, entity.ErrSlotUnavailable
	}

	booking, err := entity.NewDemoBooking(slot, entity.BookingInput{
		SlotID:   slot.ID,
		LeadID:   input.LeadID,
		Type:     typ,
		Location: input.Location,
		Notes:    input.Notes,
		BookedBy: input.ActorID,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.Demos.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.Logger).Info("demo booked",
		"booking_id", booking.ID, "slot_id", slot.ID, "lead_id", input.LeadID, "actor", input.ActorID)
	return booking, nil
}

// Cancel frees the slot for rebooking.
func (s *DemoScheduler) Cancel(ctx context.Context, bookingID, actorID string) (*entity.DemoBooking, error) {
	return s.closeBooking(ctx, bookingID, actorID, (*entity.DemoBooking).Cancel, "demo cancelled")
}

// Complete marks the demo as held. The slot stays consumed.
func (s *DemoScheduler) Complete(ctx context.Context, bookingID, actorID string) (*entity.DemoBooking, error) {
	return s.closeBooking(ctx, bookingID, actorID, (*entity.DemoBooking).Complete, "demo completed")
}

func (s *DemoScheduler) closeBooking(ctx context.Context, bookingID, actorID string, apply func(*entity.DemoBooking, time.Time) error, msg string) (*entity.DemoBooking, error) {
	booking, err := s.Demos.FindBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := apply(booking, s.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.Demos.UpdateBookingStatus(ctx, booking); err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.Logger).Info(msg, "booking_id", booking.ID, "slot_id", booking.SlotID, "actor", actorID)
	return booking, nil
}
