package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

var now = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func seedLead(t *testing.T, s *Store, name string) *entity.Lead {
	t.Helper()
	lead, err := entity.NewLead(entity.LeadInput{InstitutName: name, Email: "contact@example.fr"}, "op", now)
	require.NoError(t, err)
	require.NoError(t, s.Leads().Create(context.Background(), lead))
	return lead
}

func seedSlot(t *testing.T, s *Store, at time.Time) *entity.DemoSlot {
	t.Helper()
	slot, err := entity.NewDemoSlot(at, 30, "op", now)
	require.NoError(t, err)
	require.NoError(t, s.Demos().CreateSlot(context.Background(), slot))
	return slot
}

func book(t *testing.T, slot *entity.DemoSlot, leadID string) *entity.DemoBooking {
	t.Helper()
	b, err := entity.NewDemoBooking(slot, entity.BookingInput{LeadID: leadID, Type: entity.BookingOnline}, now)
	require.NoError(t, err)
	return b
}

// ============ SLOT EXCLUSIVITY ============

func TestConcurrentBookingsOfOneSlot(t *testing.T) {
	s := NewStore()
	slot := seedSlot(t, s, now.Add(24*time.Hour))

	const n = 20
	leads := make([]*entity.Lead, n)
	for i := range leads {
		leads[i] = seedLead(t, s, "Institut")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, unavailable int
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(lead *entity.Lead) {
			defer wg.Done()
			b, _ := entity.NewDemoBooking(slot, entity.BookingInput{LeadID: lead.ID, Type: entity.BookingOnline}, now)
			err := s.Demos().CreateBooking(context.Background(), b)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, entity.ErrSlotUnavailable):
				unavailable++
			}
		}(leads[i])
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, unavailable)
}

func TestCancelFreesSlotCompleteDoesNot(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	lead := seedLead(t, s, "Institut A")
	other := seedLead(t, s, "Institut B")
	slot := seedSlot(t, s, now.Add(time.Hour))
	repo := s.Demos()

	first := book(t, slot, lead.ID)
	require.NoError(t, repo.CreateBooking(ctx, first))

	open, err := repo.ListOpenSlots(ctx, now, entity.SlotCursor{}, 10)
	require.NoError(t, err)
	assert.Empty(t, open)

	require.NoError(t, first.Cancel(now))
	require.NoError(t, repo.UpdateBookingStatus(ctx, first))

	second := book(t, slot, other.ID)
	require.NoError(t, repo.CreateBooking(ctx, second))
	require.NoError(t, second.Complete(now))
	require.NoError(t, repo.UpdateBookingStatus(ctx, second))

	err = repo.CreateBooking(ctx, book(t, slot, lead.ID))
	assert.ErrorIs(t, err, entity.ErrSlotUnavailable)
}

func TestUpdateBookingStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	lead := seedLead(t, s, "Institut A")
	slot := seedSlot(t, s, now.Add(time.Hour))
	b := book(t, slot, lead.ID)
	require.NoError(t, s.Demos().CreateBooking(ctx, b))

	stale := *b
	require.NoError(t, b.Cancel(now))
	require.NoError(t, s.Demos().UpdateBookingStatus(ctx, b))

	require.NoError(t, stale.Complete(now))
	assert.ErrorIs(t, s.Demos().UpdateBookingStatus(ctx, &stale), entity.ErrInvalidBookingState)
}

func TestLeadHoldsOneConfirmedBooking(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	lead := seedLead(t, s, "Institut A")
	a := seedSlot(t, s, now.Add(time.Hour))
	b := seedSlot(t, s, now.Add(2*time.Hour))

	require.NoError(t, s.Demos().CreateBooking(ctx, book(t, a, lead.ID)))
	err := s.Demos().CreateBooking(ctx, book(t, b, lead.ID))
	assert.ErrorIs(t, err, entity.ErrLeadAlreadyBooked)
}

func TestListOpenSlotsKeysetPaging(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	at := now.Add(time.Hour)
	for i := 0; i < 5; i++ {
		seedSlot(t, s, at) // same instant, ordered by id
	}
	seedSlot(t, s, now.Add(-time.Hour)) // past

	repo := s.Demos()
	first, err := repo.ListOpenSlots(ctx, now, entity.SlotCursor{}, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)

	last := first[2]
	rest, err := repo.ListOpenSlots(ctx, now, entity.SlotCursor{Date: last.Date, ID: last.ID}, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Greater(t, rest[0].ID, last.ID)
}

// ============ CONVERSION GUARD ============

func TestClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	lead := seedLead(t, s, "Institut A")
	repo := s.Conversions()

	first := entity.NewConversionIntent(lead.ID, entity.PlanTeam, false, "op", now)
	require.NoError(t, repo.Claim(ctx, first))

	err := repo.Claim(ctx, entity.NewConversionIntent(lead.ID, entity.PlanTeam, false, "op", now))
	assert.ErrorIs(t, err, entity.ErrConversionInProgress)

	first.MarkFailed(errors.New("provider down"), now)
	require.NoError(t, repo.Update(ctx, first))
	require.NoError(t, repo.Claim(ctx, entity.NewConversionIntent(lead.ID, entity.PlanTeam, false, "op", now)))
}

func TestLinkIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	lead := seedLead(t, s, "Institut A")
	repo := s.Conversions()

	intent := entity.NewConversionIntent(lead.ID, entity.PlanSolo, false, "op", now)
	require.NoError(t, repo.Claim(ctx, intent))
	intent.MarkProvisioned(&entity.ProvisionResult{OrganizationID: "org-1", Slug: "institut-a"}, now)
	require.NoError(t, repo.Update(ctx, intent))

	audit, err := entity.NewInteraction(entity.InteractionInput{LeadID: lead.ID, Type: entity.InteractionNote, Content: "won"}, now)
	require.NoError(t, err)
	require.NoError(t, repo.Link(ctx, entity.ConversionLink{Intent: intent, ConvertedAt: now, ActorID: "op", Audit: audit}))

	stored, err := s.Leads().FindByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusWon, stored.Status)
	assert.Equal(t, "org-1", stored.OrganizationID)
	assert.Equal(t, now, *stored.LastContactDate)

	got, err := repo.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.IntentLinked, got.State)

	// a second link writes nothing
	audit2, _ := entity.NewInteraction(entity.InteractionInput{LeadID: lead.ID, Type: entity.InteractionNote, Content: "again"}, now)
	err = repo.Link(ctx, entity.ConversionLink{Intent: intent, ConvertedAt: now, Audit: audit2})
	assert.ErrorIs(t, err, entity.ErrAlreadyConverted)
	list, _ := s.Interactions().ListByLead(ctx, lead.ID)
	assert.Len(t, list, 1)

	err = repo.Claim(ctx, entity.NewConversionIntent(lead.ID, entity.PlanSolo, false, "op", now))
	assert.ErrorIs(t, err, entity.ErrAlreadyConverted)
}

func TestConvertedLeadGuards(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	lead := seedLead(t, s, "Institut A")
	intent := entity.NewConversionIntent(lead.ID, entity.PlanSolo, false, "op", now)
	require.NoError(t, s.Conversions().Claim(ctx, intent))
	intent.MarkProvisioned(&entity.ProvisionResult{OrganizationID: "org-1"}, now)
	require.NoError(t, s.Conversions().Link(ctx, entity.ConversionLink{Intent: intent, ConvertedAt: now}))

	// a stale copy read before the conversion
	lead.Status = entity.StatusLost
	assert.ErrorIs(t, s.Leads().Update(ctx, lead), entity.ErrConvertedLeadLocked)
	assert.ErrorIs(t, s.Leads().Delete(ctx, lead.ID), entity.ErrConvertedLeadDelete)

	// editing identity keeps the link
	lead.Status = entity.StatusWon
	lead.Phone = "+33 6 12 34 56 78"
	lead.OrganizationID = ""
	require.NoError(t, s.Leads().Update(ctx, lead))
	stored, _ := s.Leads().FindByID(ctx, lead.ID)
	assert.Equal(t, "org-1", stored.OrganizationID)
	assert.Equal(t, "+33 6 12 34 56 78", stored.Phone)
}

func TestListLeadsFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a := seedLead(t, s, "A")
	b := seedLead(t, s, "B")
	b.Status = entity.StatusLost
	b.AssignedTo = "op-2"
	require.NoError(t, s.Leads().Update(ctx, b))

	got, err := s.Leads().List(ctx, entity.LeadFilter{Statuses: []entity.LeadStatus{entity.StatusNew}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	got, err = s.Leads().List(ctx, entity.LeadFilter{AssignedTo: "op-2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)

	got, err = s.Leads().List(ctx, entity.LeadFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteLeadCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	lead := seedLead(t, s, "A")
	in, _ := entity.NewInteraction(entity.InteractionInput{LeadID: lead.ID, Type: entity.InteractionPhone, Content: "call"}, now)
	require.NoError(t, s.Interactions().Append(ctx, in))
	slot := seedSlot(t, s, now.Add(time.Hour))
	require.NoError(t, s.Demos().CreateBooking(ctx, book(t, slot, lead.ID)))

	require.NoError(t, s.Leads().Delete(ctx, lead.ID))

	list, _ := s.Interactions().ListByLead(ctx, lead.ID)
	assert.Empty(t, list)
	bookings, _ := s.Demos().ListBookingsByLead(ctx, lead.ID)
	assert.Empty(t, bookings)
	open, _ := s.Demos().ListOpenSlots(ctx, now, entity.SlotCursor{}, 10)
	assert.Len(t, open, 1)
}

func TestDeleteRefusedWhileConversionUnfinished(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	lead := seedLead(t, s, "Institut A")
	repo := s.Conversions()

	intent := entity.NewConversionIntent(lead.ID, entity.PlanSolo, false, "op", now)
	require.NoError(t, repo.Claim(ctx, intent))
	assert.ErrorIs(t, s.Leads().Delete(ctx, lead.ID), entity.ErrConversionInProgress)

	// provisioned but never linked: the intent is the only trace of the tenant
	intent.MarkProvisioned(&entity.ProvisionResult{OrganizationID: "org-1", Slug: "institut-a"}, now)
	require.NoError(t, repo.Update(ctx, intent))
	assert.ErrorIs(t, s.Leads().Delete(ctx, lead.ID), entity.ErrConversionInProgress)

	stuck, err := repo.ListStuck(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, intent.ID, stuck[0].ID)
	_, err = repo.FindByID(ctx, intent.ID)
	require.NoError(t, err)

	// a failed attempt does not hold the lead
	other := seedLead(t, s, "Institut B")
	failed := entity.NewConversionIntent(other.ID, entity.PlanSolo, false, "op", now)
	require.NoError(t, repo.Claim(ctx, failed))
	failed.MarkFailed(errors.New("provider down"), now)
	require.NoError(t, repo.Update(ctx, failed))
	require.NoError(t, s.Leads().Delete(ctx, other.ID))
}

func TestLinkStoresTenantWithoutProvisionedUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	lead := seedLead(t, s, "Institut A")
	repo := s.Conversions()

	intent := entity.NewConversionIntent(lead.ID, entity.PlanSolo, false, "op", now)
	require.NoError(t, repo.Claim(ctx, intent))
	intent.MarkProvisioned(&entity.ProvisionResult{OrganizationID: "org-1", Slug: "institut-a", AdminEmail: "a@b.fr"}, now)
	require.NoError(t, repo.Link(ctx, entity.ConversionLink{Intent: intent, ConvertedAt: now}))

	got, err := repo.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.IntentLinked, got.State)
	assert.Equal(t, "org-1", got.OrganizationID)
	assert.Equal(t, "institut-a", got.Slug)
}

func TestFindOrganizationBySourceLead(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	orgs := s.Organizations()

	_, err := orgs.FindBySourceLead(ctx, "lead-1")
	assert.ErrorIs(t, err, entity.ErrOrganizationNotFound)

	older := entity.NewOrganization(entity.InstituteProfile{Name: "A", SourceLeadID: "lead-1"}, entity.PlanSolo, "a", "h", now)
	newer := entity.NewOrganization(entity.InstituteProfile{Name: "A", SourceLeadID: "lead-1"}, entity.PlanSolo, "a-2", "h", now.Add(time.Minute))
	unrelated := entity.NewOrganization(entity.InstituteProfile{Name: "B", SourceLeadID: "lead-2"}, entity.PlanSolo, "b", "h", now.Add(time.Hour))
	for _, o := range []*entity.Organization{older, newer, unrelated} {
		require.NoError(t, orgs.Create(ctx, o))
	}

	got, err := orgs.FindBySourceLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
}

func TestCheckpointUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Checkpoints()

	cp1, _ := entity.NewCheckpoint("wf", "plan", []byte(`{"plan":"TEAM"}`), "op", now)
	cp2, _ := entity.NewCheckpoint("wf", "billing", []byte(`{"iban":"FR76"}`), "op", now.Add(time.Minute))
	require.NoError(t, repo.Save(ctx, cp1))
	require.NoError(t, repo.Save(ctx, cp2))

	got, err := repo.Find(ctx, "wf")
	require.NoError(t, err)
	assert.Equal(t, "billing", got.StepID)

	require.NoError(t, repo.Delete(ctx, "wf"))
	_, err = repo.Find(ctx, "wf")
	assert.ErrorIs(t, err, entity.ErrCheckpointNotFound)
}
