package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type InteractionUseCase struct {
	Leads        entity.LeadRepository
	Interactions entity.InteractionRepository
	Demos        entity.DemoRepository
	Logger       *slog.Logger
	Now          func() time.Time
}

func NewInteractionUseCase(leads entity.LeadRepository, interactions entity.InteractionRepository, demos entity.DemoRepository, log *slog.Logger) *InteractionUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &InteractionUseCase{Leads: leads, Interactions: interactions, Demos: demos, Logger: log, Now: time.Now}
}

// Append logs a contact event. It only fails when the input is invalid or
// the lead does not exist.
func (uc *InteractionUseCase) Append(ctx context.Context, input AppendInteractionInput) (*entity.Interaction, error) {
	typ, err := entity.ParseInteractionType(input.Type)
	if err != nil {
		return nil, err
	}

	var next *time.Time
	if input.NextActionDate != nil {
		d := input.NextActionDate.UTC()
		next = &d
	}

	in, err := entity.NewInteraction(entity.InteractionInput{
		LeadID:         input.LeadID,
		Type:           typ,
		Subject:        input.Subject,
		Content:        input.Content,
		NextAction:     input.NextAction,
		NextActionDate: next,
		AuthorID:       input.AuthorID,
	}, uc.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := uc.Interactions.Append(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

// Timeline returns the lead's interactions newest first, interleaved with
// its current demo booking.
func (uc *InteractionUseCase) Timeline(ctx context.Context, leadID string) ([]TimelineEntry, error) {
	if _, err := uc.Leads.FindByID(ctx, leadID); err != nil {
		return nil, err
	}

	interactions, err := uc.Interactions.ListByLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	bookings, err := uc.Demos.ListBookingsByLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	entries := make([]TimelineEntry, 0, len(interactions)+1)
	for _, in := range interactions {
		entries = append(entries, TimelineEntry{Kind: TimelineInteraction, At: in.CreatedAt, Interaction: in})
	}
	if b := currentBooking(bookings); b != nil {
		entries = append(entries, TimelineEntry{Kind: TimelineDemo, At: b.SlotDate, Booking: b})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].At.After(entries[j].At)
	})
	return entries, nil
}

// currentBooking picks the newest booking still holding its slot.
// bookings are newest first.
func currentBooking(bookings []*entity.DemoBooking) *entity.DemoBooking {
	for _, b := range bookings {
		if b.Status.Holds() {
			return b
		}
	}
	return nil
}
