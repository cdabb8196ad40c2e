package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/infra/memory"
	"github.com/xavierca1/institut-pipeline/internal/logger"
)

func newLeadUseCase(store *memory.Store) *LeadUseCase {
	uc := NewLeadUseCase(store.Leads(), logger.Discard())
	uc.Now = fixedNow
	return uc
}

func strPtr(s string) *string { return &s }

func TestCreateLead(t *testing.T) {
	uc := newLeadUseCase(memory.NewStore())

	lead, err := uc.Create(context.Background(), CreateLeadInput{
		InstitutName: "Institut Belle Peau",
		Email:        "contact@bellepeau.fr",
		Source:       "salon-beaute-2024",
		ActorID:      "op-1",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNew, lead.Status)
	assert.Equal(t, clock, lead.CreatedAt)

	_, err = uc.Create(context.Background(), CreateLeadInput{Email: "x@y.fr"})
	assert.ErrorIs(t, err, entity.ErrInvalid)
}

func TestTransitionStatus(t *testing.T) {
	store := memory.NewStore()
	uc := newLeadUseCase(store)
	lead := seedLead(store, "Institut A", "a@a.fr")
	ctx := context.Background()

	got, err := uc.TransitionStatus(ctx, TransitionStatusInput{LeadID: lead.ID, Status: "demo_scheduled", ActorID: "op-2"})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDemoScheduled, got.Status)
	assert.Equal(t, "op-2", got.UpdatedBy)

	// backwards is fine
	_, err = uc.TransitionStatus(ctx, TransitionStatusInput{LeadID: lead.ID, Status: "CONTACTED"})
	require.NoError(t, err)

	_, err = uc.TransitionStatus(ctx, TransitionStatusInput{LeadID: lead.ID, Status: "LOST"})
	require.NoError(t, err)
	_, err = uc.TransitionStatus(ctx, TransitionStatusInput{LeadID: lead.ID, Status: "NEW"})
	assert.ErrorIs(t, err, entity.ErrTerminalStatus)
	_, err = uc.TransitionStatus(ctx, TransitionStatusInput{LeadID: lead.ID, Status: "NEW", Reopen: true})
	assert.NoError(t, err)

	_, err = uc.TransitionStatus(ctx, TransitionStatusInput{LeadID: lead.ID, Status: "SIGNED"})
	assert.ErrorIs(t, err, entity.ErrInvalidStatus)

	_, err = uc.TransitionStatus(ctx, TransitionStatusInput{LeadID: "missing", Status: "NEW"})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestQualificationIndependentOfStatus(t *testing.T) {
	store := memory.NewStore()
	uc := newLeadUseCase(store)
	lead := seedLead(store, "Institut A", "a@a.fr")
	ctx := context.Background()

	got, err := uc.SetQualification(ctx, SetQualificationInput{LeadID: lead.ID, Qualification: strPtr("hot")})
	require.NoError(t, err)
	assert.Equal(t, entity.QualificationHot, *got.Qualification)
	assert.Equal(t, entity.StatusNew, got.Status)

	got, err = uc.TransitionStatus(ctx, TransitionStatusInput{LeadID: lead.ID, Status: "QUALIFIED"})
	require.NoError(t, err)
	assert.Equal(t, entity.QualificationHot, *got.Qualification)

	got, err = uc.ClearQualification(ctx, lead.ID, "op-1")
	require.NoError(t, err)
	assert.Nil(t, got.Qualification)
	assert.Equal(t, entity.StatusQualified, got.Status)

	stored, _ := store.Leads().FindByID(ctx, lead.ID)
	assert.Nil(t, stored.Qualification)

	_, err = uc.SetQualification(ctx, SetQualificationInput{LeadID: lead.ID, Qualification: strPtr("tepid")})
	assert.ErrorIs(t, err, entity.ErrInvalidQualification)
}

func TestSetScoring(t *testing.T) {
	store := memory.NewStore()
	uc := newLeadUseCase(store)
	lead := seedLead(store, "Institut A", "a@a.fr")

	got, err := uc.SetScoring(context.Background(), SetScoringInput{LeadID: lead.ID, Score: 80, Probability: 65})
	require.NoError(t, err)
	assert.Equal(t, 80, got.Score)
	assert.Equal(t, 65, got.Probability)

	_, err = uc.SetScoring(context.Background(), SetScoringInput{LeadID: lead.ID, Score: 120})
	assert.ErrorIs(t, err, entity.ErrScoreOutOfRange)
}

func TestUpdateLeadPatch(t *testing.T) {
	store := memory.NewStore()
	uc := newLeadUseCase(store)
	lead := seedLead(store, "Institut A", "a@a.fr")
	follow := clock.Add(7 * 24 * time.Hour)

	got, err := uc.Update(context.Background(), UpdateLeadInput{
		LeadID:           lead.ID,
		Phone:            strPtr("+33 4 78 00 00 00"),
		AssignedTo:       strPtr("op-3"),
		NextFollowUpDate: &follow,
		ActorID:          "op-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "+33 4 78 00 00 00", got.Phone)
	assert.Equal(t, "Institut A", got.InstitutName)
	assert.Equal(t, follow, *got.NextFollowUpDate)

	_, err = uc.Update(context.Background(), UpdateLeadInput{LeadID: lead.ID, Email: strPtr("broken")})
	assert.ErrorIs(t, err, entity.ErrInvalid)
}

func TestListLeadsRejectsUnknownStatus(t *testing.T) {
	uc := newLeadUseCase(memory.NewStore())
	_, err := uc.List(context.Background(), ListLeadsInput{Statuses: []string{"NEW", "ARCHIVED"}})

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "status", verrs[0].Field)
}
