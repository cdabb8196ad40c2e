package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func newTestLead(t *testing.T) *Lead {
	t.Helper()
	lead, err := NewLead(LeadInput{
		InstitutName: "Institut Belle Peau",
		ContactName:  "Camille Martin",
		Email:        "Camille@BellePeau.fr ",
	}, "op-1", t0)
	require.NoError(t, err)
	return lead
}

// ============ LEAD FACTORY ============

func TestNewLeadDefaults(t *testing.T) {
	lead := newTestLead(t)

	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, StatusNew, lead.Status)
	assert.Equal(t, "camille@bellepeau.fr", lead.Email)
	assert.Nil(t, lead.Qualification)
	assert.Nil(t, lead.LastContactDate)
	assert.False(t, lead.IsConverted())
	assert.Equal(t, "op-1", lead.UpdatedBy)
}

func TestNewLeadValidation(t *testing.T) {
	_, err := NewLead(LeadInput{Email: "x@y.fr"}, "", t0)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = NewLead(LeadInput{InstitutName: "A", Email: "not-an-email"}, "", t0)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = NewLead(LeadInput{InstitutName: "A", EstimatedValueCents: -1}, "", t0)
	assert.ErrorIs(t, err, ErrInvalid)
}

// ============ STATE MACHINE ============

func TestParseLeadStatusIsClosed(t *testing.T) {
	for _, s := range LeadStatuses {
		got, err := ParseLeadStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	got, err := ParseLeadStatus(" proposal_sent ")
	require.NoError(t, err)
	assert.Equal(t, StatusProposalSent, got)

	_, err = ParseLeadStatus("ARCHIVED")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestTransitionAnyToAny(t *testing.T) {
	nonTerminal := []LeadStatus{
		StatusNew, StatusContacted, StatusQualified, StatusDemoScheduled, StatusDemoDone,
		StatusProposalSent, StatusNegotiation, StatusOnHold,
	}
	for _, from := range nonTerminal {
		for _, to := range LeadStatuses {
			lead := newTestLead(t)
			lead.Status = from
			_, err := lead.Transition(to, false, "op-2", t0.Add(time.Hour))
			require.NoError(t, err, "%s -> %s", from, to)
			assert.Equal(t, to, lead.Status)
		}
	}
}

func TestTransitionSameStatusIsNoop(t *testing.T) {
	lead := newTestLead(t)
	changed, err := lead.Transition(StatusNew, false, "op-2", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, t0, lead.UpdatedAt)
}

func TestTransitionOutOfTerminalNeedsReopen(t *testing.T) {
	for _, terminal := range []LeadStatus{StatusWon, StatusLost} {
		lead := newTestLead(t)
		lead.Status = terminal

		_, err := lead.Transition(StatusNegotiation, false, "op", t0)
		assert.ErrorIs(t, err, ErrTerminalStatus)
		assert.Equal(t, terminal, lead.Status)

		changed, err := lead.Transition(StatusNegotiation, true, "op", t0)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusNegotiation, lead.Status)
	}
}

func TestConvertedLeadNeverLeavesWon(t *testing.T) {
	lead := newTestLead(t)
	require.NoError(t, lead.MarkConverted("org-1", "op", t0))

	_, err := lead.Transition(StatusLost, true, "op", t0)
	assert.ErrorIs(t, err, ErrConvertedLeadLocked)
	assert.Equal(t, StatusWon, lead.Status)
	assert.NoError(t, lead.CheckInvariant())
}

func TestStatusDoesNotTouchContactOrQualification(t *testing.T) {
	lead := newTestLead(t)
	hot := QualificationHot
	require.NoError(t, lead.SetQualification(&hot, "op", t0))

	_, err := lead.Transition(StatusLost, false, "op", t0)
	require.NoError(t, err)

	require.NotNil(t, lead.Qualification)
	assert.Equal(t, QualificationHot, *lead.Qualification)
	assert.Nil(t, lead.LastContactDate)
}

// ============ QUALIFICATION & SCORING ============

func TestSetQualificationAndClear(t *testing.T) {
	lead := newTestLead(t)
	warm := QualificationWarm
	require.NoError(t, lead.SetQualification(&warm, "op", t0))
	assert.Equal(t, QualificationWarm, *lead.Qualification)
	assert.Equal(t, StatusNew, lead.Status)

	require.NoError(t, lead.SetQualification(nil, "op", t0))
	assert.Nil(t, lead.Qualification)

	bad := Qualification("LUKEWARM")
	assert.ErrorIs(t, lead.SetQualification(&bad, "op", t0), ErrInvalidQualification)
}

func TestSetScoringRange(t *testing.T) {
	lead := newTestLead(t)
	require.NoError(t, lead.SetScoring(0, 100, "op", t0))
	require.NoError(t, lead.SetScoring(73, 40, "op", t0))
	assert.Equal(t, 73, lead.Score)
	assert.Equal(t, 40, lead.Probability)

	for _, tc := range [][2]int{{-1, 10}, {101, 10}, {10, -1}, {10, 101}} {
		err := lead.SetScoring(tc[0], tc[1], "op", t0)
		assert.ErrorIs(t, err, ErrScoreOutOfRange)
	}
	assert.Equal(t, 73, lead.Score)
}

// ============ CONVERSION ============

func TestMarkConvertedOnce(t *testing.T) {
	lead := newTestLead(t)
	lead.Status = StatusNegotiation

	require.NoError(t, lead.MarkConverted("org-1", "op", t0))
	assert.Equal(t, StatusWon, lead.Status)
	assert.Equal(t, "org-1", lead.OrganizationID)
	require.NotNil(t, lead.ConvertedAt)

	err := lead.MarkConverted("org-2", "op", t0)
	assert.ErrorIs(t, err, ErrAlreadyConverted)
	assert.Equal(t, "org-1", lead.OrganizationID)
}

func TestRecordContact(t *testing.T) {
	lead := newTestLead(t)
	next := t0.Add(72 * time.Hour)

	lead.RecordContact(t0, nil)
	assert.Equal(t, t0, *lead.LastContactDate)
	assert.Nil(t, lead.NextFollowUpDate)

	lead.RecordContact(t0.Add(time.Hour), &next)
	assert.Equal(t, next, *lead.NextFollowUpDate)
}

func TestErrorClasses(t *testing.T) {
	assert.True(t, errors.Is(ErrSlotUnavailable, ErrConflict))
	assert.True(t, errors.Is(ErrSlotNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrSlotUnavailable, ErrLeadAlreadyBooked))
	assert.Equal(t, "demo slot is unavailable", ErrSlotUnavailable.Error())
}
