package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type DemoRepository struct{ s *Store }

func (r *DemoRepository) CreateSlot(_ context.Context, slot *entity.DemoSlot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.slots[slot.ID]; ok {
		return entity.ErrConflict
	}
	c := *slot
	r.s.slots[slot.ID] = &c
	return nil
}

func (r *DemoRepository) FindSlot(_ context.Context, id string) (*entity.DemoSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[id]
	if !ok {
		return nil, entity.ErrSlotNotFound
	}
	c := *slot
	return &c, nil
}

func (r *DemoRepository) ListOpenSlots(_ context.Context, after time.Time, cursor entity.SlotCursor, limit int) ([]entity.DemoSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var open []entity.DemoSlot
	for _, slot := range r.s.slots {
		if !slot.IsAvailable || !slot.Date.After(after) || r.s.slotHeldLocked(slot.ID) {
			continue
		}
		if !cursor.Date.IsZero() || cursor.ID != "" {
			if slot.Date.Before(cursor.Date) || (slot.Date.Equal(cursor.Date) && slot.ID <= cursor.ID) {
				continue
			}
		}
		open = append(open, *slot)
	}

	sort.Slice(open, func(i, j int) bool {
		if open[i].Date.Equal(open[j].Date) {
			return open[i].ID < open[j].ID
		}
		return open[i].Date.Before(open[j].Date)
	})
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

func (s *Store) slotHeldLocked(slotID string) bool {
	for _, b := range s.bookings {
		if b.SlotID == slotID && b.Status.Holds() {
			return true
		}
	}
	return false
}

func (r *DemoRepository) CreateBooking(_ context.Context, booking *entity.DemoBooking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[booking.SlotID]
	if !ok {
		return entity.ErrSlotNotFound
	}
	if _, ok := r.s.leads[booking.LeadID]; !ok {
		return entity.ErrLeadNotFound
	}
	if !slot.IsAvailable || r.s.slotHeldLocked(slot.ID) {
		return entity.ErrSlotUnavailable
	}
	for _, b := range r.s.bookings {
		if b.LeadID == booking.LeadID && b.Status == entity.BookingConfirmed {
			return entity.ErrLeadAlreadyBooked
		}
	}

	r.s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

func (r *DemoRepository) FindBooking(_ context.Context, id string) (*entity.DemoBooking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *DemoRepository) UpdateBookingStatus(_ context.Context, booking *entity.DemoBooking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.bookings[booking.ID]
	if !ok {
		return entity.ErrBookingNotFound
	}
	if cur.Status != entity.BookingConfirmed {
		return entity.ErrInvalidBookingState
	}
	cur.Status = booking.Status
	cur.CompletedAt = timePtr(booking.CompletedAt)
	cur.CancelledAt = timePtr(booking.CancelledAt)
	cur.UpdatedAt = booking.UpdatedAt
	return nil
}

func (r *DemoRepository) ListBookingsByLead(_ context.Context, leadID string) ([]*entity.DemoBooking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.DemoBooking
	for _, b := range r.s.bookings {
		if b.LeadID == leadID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
