package entity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DemoSlot is a bookable point in time published by an operator.
type DemoSlot struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	IsAvailable     bool      `json:"is_available"`
	CreatedBy       string    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewDemoSlot(date time.Time, durationMinutes int, createdBy string, now time.Time) (*DemoSlot, error) {
	if date.IsZero() {
		return nil, newError(ErrInvalid, "slot date is required")
	}
	if durationMinutes <= 0 || durationMinutes > 8*60 {
		return nil, newError(ErrInvalid, "slot duration must be between 1 and 480 minutes")
	}
	return &DemoSlot{
		ID:              uuid.New().String(),
		Date:            date.UTC(),
		DurationMinutes: durationMinutes,
		IsAvailable:     true,
		CreatedBy:       createdBy,
		CreatedAt:       now,
	}, nil
}

func (s DemoSlot) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// SlotCursor is the keyset position of slot paging, ordered by (date, id).
type SlotCursor struct {
	Date time.Time
	ID   string
}

// SlotDay groups open slots by calendar date for display.
type SlotDay struct {
	Date  string     `json:"date"` // YYYY-MM-DD in the display location
	Slots []DemoSlot `json:"slots"`
}

// GroupSlotsByDate projects date-ordered slots into days.
func GroupSlotsByDate(slots []DemoSlot, loc *time.Location) []SlotDay {
	if loc == nil {
		loc = time.UTC
	}
	var days []SlotDay
	for _, s := range slots {
		key := s.Date.In(loc).Format(time.DateOnly)
		if n := len(days); n > 0 && days[n-1].Date == key {
			days[n-1].Slots = append(days[n-1].Slots, s)
			continue
		}
		days = append(days, SlotDay{Date: key, Slots: []DemoSlot{s}})
	}
	return days
}

type BookingType string

const (
	BookingOnline   BookingType = "ONLINE"
	BookingPhysical BookingType = "PHYSICAL"
)

func ParseBookingType(s string) (BookingType, error) {
	t := BookingType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case BookingOnline, BookingPhysical:
		return t, nil
	}
	return "", ErrInvalidBookingType
}

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Holds reports whether the booking still occupies its slot.
func (s BookingStatus) Holds() bool {
	switch s {
	case BookingConfirmed, BookingCompleted:
		return true
	case BookingCancelled:
		return false
	}
	return false
}

type DemoBooking struct {
	ID          string        `json:"id"`
	SlotID      string        `json:"slot_id"`
	LeadID      string        `json:"lead_id"`
	Type        BookingType   `json:"type"`
	Location    string        `json:"location,omitempty"`
	Notes       string        `json:"notes,omitempty"`
	Status      BookingStatus `json:"status"`
	SlotDate    time.Time     `json:"slot_date"`
	BookedBy    string        `json:"booked_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
}

type BookingInput struct {
	SlotID   string
	LeadID   string
	Type     BookingType
	Location string
	Notes    string
	BookedBy string
}

// NewDemoBooking builds a CONFIRMED booking of slot for a lead.
func NewDemoBooking(slot *DemoSlot, in BookingInput, now time.Time) (*DemoBooking, error) {
	if _, err := ParseBookingType(string(in.Type)); err != nil {
		return nil, err
	}
	location := strings.TrimSpace(in.Location)
	if in.Type == BookingPhysical && location == "" {
		return nil, newError(ErrInvalid, "location is required for a physical demo")
	}
	return &DemoBooking{
		ID:        uuid.New().String(),
		SlotID:    slot.ID,
		LeadID:    in.LeadID,
		Type:      in.Type,
		Location:  location,
		Notes:     strings.TrimSpace(in.Notes),
		Status:    BookingConfirmed,
		SlotDate:  slot.Date,
		BookedBy:  in.BookedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Cancel frees the slot. Only confirmed bookings can be cancelled.
func (b *DemoBooking) Cancel(now time.Time) error {
	if b.Status != BookingConfirmed {
		return ErrInvalidBookingState
	}
	b.Status = BookingCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now
	return nil
}

// Complete closes the demo. The slot stays consumed.
func (b *DemoBooking) Complete(now time.Time) error {
	if b.Status != BookingConfirmed {
		return ErrInvalidBookingState
	}
	b.Status = BookingCompleted
	b.CompletedAt = &now
	b.UpdatedAt = now
	return nil
}

type DemoRepository interface {
	CreateSlot(ctx context.Context, slot *DemoSlot) error
	FindSlot(ctx context.Context, id string) (*DemoSlot, error)
	// ListOpenSlots returns up to limit available slots dated after `after`
	// with no holding booking, strictly past cursor, ordered by (date, id).
	ListOpenSlots(ctx context.Context, after time.Time, cursor SlotCursor, limit int) ([]DemoSlot, error)

	// CreateBooking inserts a CONFIRMED booking atomically. It fails with
	// ErrSlotUnavailable when the slot already holds a booking or is not
	// available, and ErrLeadAlreadyBooked when the lead has a confirmed one.
	CreateBooking(ctx context.Context, booking *DemoBooking) error
	FindBooking(ctx context.Context, id string) (*DemoBooking, error)
	// UpdateBookingStatus persists a transition out of CONFIRMED. It fails
	// with ErrInvalidBookingState when the stored booking is not CONFIRMED.
	UpdateBookingStatus(ctx context.Context, booking *DemoBooking) error
	// ListBookingsByLead returns the lead's bookings newest first.
	ListBookingsByLead(ctx context.Context, leadID string) ([]*DemoBooking, error)
}
