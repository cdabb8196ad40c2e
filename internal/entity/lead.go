package entity

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the position of a lead in the sales pipeline.
type LeadStatus string

const (
	StatusNew           LeadStatus = "NEW"
	StatusContacted     LeadStatus = "CONTACTED"
	StatusQualified     LeadStatus = "QUALIFIED"
	StatusDemoScheduled LeadStatus = "DEMO_SCHEDULED"
	StatusDemoDone      LeadStatus = "DEMO_DONE"
	StatusProposalSent  LeadStatus = "PROPOSAL_SENT"
	StatusNegotiation   LeadStatus = "NEGOTIATION"
	StatusWon           LeadStatus = "WON"
	StatusOnHold        LeadStatus = "ON_HOLD"
	StatusLost          LeadStatus = "LOST"
)

// LeadStatuses lists every pipeline status in board order.
var LeadStatuses = []LeadStatus{
	StatusNew, StatusContacted, StatusQualified, StatusDemoScheduled, StatusDemoDone,
	StatusProposalSent, StatusNegotiation, StatusWon, StatusOnHold, StatusLost,
}

func ParseLeadStatus(s string) (LeadStatus, error) {
	st := LeadStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func (s LeadStatus) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusDemoScheduled, StatusDemoDone,
		StatusProposalSent, StatusNegotiation, StatusWon, StatusOnHold, StatusLost:
		return true
	}
	return false
}

// Terminal reports whether leaving the status needs an explicit reopen.
// ON_HOLD is a pause, not an end.
func (s LeadStatus) Terminal() bool {
	switch s {
	case StatusWon, StatusLost:
		return true
	case StatusNew, StatusContacted, StatusQualified, StatusDemoScheduled, StatusDemoDone,
		StatusProposalSent, StatusNegotiation, StatusOnHold:
		return false
	}
	return false
}

// Qualification is the heat tag of a lead, orthogonal to its status.
type Qualification string

const (
	QualificationCold Qualification = "COLD"
	QualificationWarm Qualification = "WARM"
	QualificationHot  Qualification = "HOT"
)

func ParseQualification(s string) (Qualification, error) {
	q := Qualification(strings.ToUpper(strings.TrimSpace(s)))
	switch q {
	case QualificationCold, QualificationWarm, QualificationHot:
		return q, nil
	}
	return "", ErrInvalidQualification
}

// Address is shared by leads and organizations.
type Address struct {
	Street     string `json:"street,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Lead struct {
	ID           string  `json:"id"`
	InstitutName string  `json:"institut_name"`
	ContactName  string  `json:"contact_name,omitempty"`
	Email        string  `json:"email,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Address      Address `json:"address"`
	Website      string  `json:"website,omitempty"`

	Status              LeadStatus     `json:"status"`
	Qualification       *Qualification `json:"qualification"`
	Score               int            `json:"score"`
	Probability         int            `json:"probability"`
	EstimatedValueCents int64          `json:"estimated_value_cents"`
	Source              string         `json:"source,omitempty"`

	AssignedTo string `json:"assigned_to,omitempty"`

	LastContactDate  *time.Time `json:"last_contact_date"`
	NextFollowUpDate *time.Time `json:"next_follow_up_date"`

	// OrganizationID is set once, at conversion. Its presence is the
	// authoritative "already converted" flag.
	OrganizationID string     `json:"organization_id,omitempty"`
	ConvertedAt    *time.Time `json:"converted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// LeadInput carries the operator-editable identity of a lead.
type LeadInput struct {
	InstitutName        string
	ContactName         string
	Email               string
	Phone               string
	Address             Address
	Website             string
	EstimatedValueCents int64
	Source              string
	AssignedTo          string
}

// NewLead creates a lead in status NEW.
func NewLead(in LeadInput, createdBy string, now time.Time) (*Lead, error) {
	lead := &Lead{
		ID:                  uuid.New().String(),
		InstitutName:        strings.TrimSpace(in.InstitutName),
		ContactName:         strings.TrimSpace(in.ContactName),
		Email:               strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:               strings.TrimSpace(in.Phone),
		Address:             in.Address,
		Website:             strings.TrimSpace(in.Website),
		Status:              StatusNew,
		EstimatedValueCents: in.EstimatedValueCents,
		Source:              strings.TrimSpace(in.Source),
		AssignedTo:          in.AssignedTo,
		CreatedAt:           now,
		UpdatedAt:           now,
		UpdatedBy:           createdBy,
	}

	if err := lead.Validate(); err != nil {
		return nil, err
	}
	return lead, nil
}

func (l *Lead) Validate() error {
	if l.InstitutName == "" {
		return newError(ErrInvalid, "institut name is required")
	}
	if l.Email != "" {
		if _, err := mail.ParseAddress(l.Email); err != nil {
			return newError(ErrInvalid, "email is invalid")
		}
	}
	if l.EstimatedValueCents < 0 {
		return newError(ErrInvalid, "estimated value cannot be negative")
	}
	if !l.Status.Valid() {
		return ErrInvalidStatus
	}
	return l.CheckInvariant()
}

// IsConverted reports whether the lead already owns an organization.
func (l *Lead) IsConverted() bool { return l.OrganizationID != "" }

// CheckInvariant enforces organization link => WON.
func (l *Lead) CheckInvariant() error {
	if l.IsConverted() && l.Status != StatusWon {
		return ErrConvertedLeadLocked
	}
	return nil
}

// Transition moves the lead to another status. Any status may follow any
// other; WON and LOST are only left with reopen, and a converted lead never
// leaves WON. Moving to the current status is a no-op.
func (l *Lead) Transition(to LeadStatus, reopen bool, actor string, now time.Time) (changed bool, err error) {
	if !to.Valid() {
		return false, ErrInvalidStatus
	}
	if to == l.Status {
		return false, nil
	}
	if l.IsConverted() {
		return false, ErrConvertedLeadLocked
	}
	if l.Status.Terminal() && !reopen {
		return false, ErrTerminalStatus
	}

	l.Status = to
	l.touch(actor, now)
	return true, nil
}

// SetQualification sets the heat tag; nil clears it.
func (l *Lead) SetQualification(q *Qualification, actor string, now time.Time) error {
	if q != nil {
		if _, err := ParseQualification(string(*q)); err != nil {
			return err
		}
		v := *q
		q = &v
	}
	l.Qualification = q
	l.touch(actor, now)
	return nil
}

// SetScoring stores the manually maintained score and probability.
func (l *Lead) SetScoring(score, probability int, actor string, now time.Time) error {
	if score < 0 || score > 100 || probability < 0 || probability > 100 {
		return ErrScoreOutOfRange
	}
	l.Score = score
	l.Probability = probability
	l.touch(actor, now)
	return nil
}

// RecordContact applies the side effects of a new interaction.
func (l *Lead) RecordContact(at time.Time, nextFollowUp *time.Time) {
	l.LastContactDate = &at
	if nextFollowUp != nil {
		v := *nextFollowUp
		l.NextFollowUpDate = &v
	}
}

// MarkConverted links the lead to its organization and closes it as WON.
func (l *Lead) MarkConverted(organizationID, actor string, now time.Time) error {
	if l.IsConverted() {
		return ErrAlreadyConverted
	}
	l.OrganizationID = organizationID
	l.Status = StatusWon
	l.ConvertedAt = &now
	l.touch(actor, now)
	return nil
}

func (l *Lead) touch(actor string, now time.Time) {
	l.UpdatedAt = now
	if actor != "" {
		l.UpdatedBy = actor
	}
}

// LeadFilter narrows List. Empty fields match everything.
type LeadFilter struct {
	Statuses   []LeadStatus
	AssignedTo string
	Limit      int
	Offset     int
}

type LeadRepository interface {
	Create(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]*Lead, error)
	// Update writes the editable attributes (last write wins). It never
	// touches the organization link and fails with ErrConvertedLeadLocked
	// when the stored lead is converted and the new status is not WON.
	Update(ctx context.Context, lead *Lead) error
	// Delete removes the lead with its interactions and bookings. Converted
	// leads are refused with ErrConvertedLeadDelete, leads with a PENDING or
	// PROVISIONED conversion intent with ErrConversionInProgress.
	Delete(ctx context.Context, id string) error
}
