package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IntentState tracks a conversion saga:
// PENDING -> PROVISIONED -> LINKED, or PENDING -> FAILED.
type IntentState string

const (
	IntentPending     IntentState = "PENDING"
	IntentProvisioned IntentState = "PROVISIONED"
	IntentLinked      IntentState = "LINKED"
	IntentFailed      IntentState = "FAILED"
)

// Active reports whether the intent blocks another conversion of its lead.
func (s IntentState) Active() bool {
	switch s {
	case IntentPending, IntentProvisioned, IntentLinked:
		return true
	case IntentFailed:
		return false
	}
	return false
}

type ConversionIntent struct {
	ID                string      `json:"id"`
	LeadID            string      `json:"lead_id"`
	Plan              PlanTier    `json:"plan"`
	WithBilling       bool        `json:"with_billing"`
	State             IntentState `json:"state"`
	OrganizationID    string      `json:"organization_id,omitempty"`
	Slug              string      `json:"slug,omitempty"`
	AdminEmail        string      `json:"admin_email,omitempty"`
	LastError         string      `json:"last_error,omitempty"`
	RequestedBy       string      `json:"requested_by,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	ProvisionedAt     *time.Time  `json:"provisioned_at,omitempty"`
	LinkedAt          *time.Time  `json:"linked_at,omitempty"`
	NotifiedAt        *time.Time  `json:"notified_at,omitempty"`
	NotificationError string      `json:"notification_error,omitempty"`
}

func NewConversionIntent(leadID string, plan PlanTier, withBilling bool, requestedBy string, now time.Time) *ConversionIntent {
	return &ConversionIntent{
		ID:          uuid.New().String(),
		LeadID:      leadID,
		Plan:        plan,
		WithBilling: withBilling,
		State:       IntentPending,
		RequestedBy: requestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (i *ConversionIntent) MarkProvisioned(res *ProvisionResult, now time.Time) {
	i.State = IntentProvisioned
	i.OrganizationID = res.OrganizationID
	i.Slug = res.Slug
	i.AdminEmail = res.AdminEmail
	i.ProvisionedAt = &now
	i.UpdatedAt = now
}

func (i *ConversionIntent) MarkFailed(cause error, now time.Time) {
	i.State = IntentFailed
	if cause != nil {
		i.LastError = cause.Error()
	}
	i.UpdatedAt = now
}

func (i *ConversionIntent) MarkLinked(now time.Time) {
	i.State = IntentLinked
	i.LastError = ""
	i.LinkedAt = &now
	i.UpdatedAt = now
}

// MarkLinkFailed keeps the intent PROVISIONED and records why linking failed.
func (i *ConversionIntent) MarkLinkFailed(cause error, now time.Time) {
	i.LastError = cause.Error()
	i.UpdatedAt = now
}

func (i *ConversionIntent) MarkNotified(notifyErr error, now time.Time) {
	if notifyErr != nil {
		i.NotificationError = notifyErr.Error()
	} else {
		i.NotifiedAt = &now
		i.NotificationError = ""
	}
	i.UpdatedAt = now
}

// Stuck reports an intent that never reached a final state before cutoff.
func (i *ConversionIntent) Stuck(cutoff time.Time) bool {
	switch i.State {
	case IntentPending, IntentProvisioned:
		return i.UpdatedAt.Before(cutoff)
	case IntentLinked, IntentFailed:
		return false
	}
	return false
}

// ConversionLink is the single write that closes a conversion: lead WON with
// its organization, the audit interaction and the intent LINKED.
type ConversionLink struct {
	Intent      *ConversionIntent
	ConvertedAt time.Time
	ActorID     string
	Audit       *Interaction
}

type ConversionRepository interface {
	// Claim inserts a PENDING intent. Fails with ErrLeadNotFound,
	// ErrAlreadyConverted (lead linked or LINKED intent) or
	// ErrConversionInProgress (PENDING/PROVISIONED intent).
	Claim(ctx context.Context, intent *ConversionIntent) error
	Update(ctx context.Context, intent *ConversionIntent) error
	FindByID(ctx context.Context, id string) (*ConversionIntent, error)
	// Link applies a ConversionLink atomically. It fails with
	// ErrAlreadyConverted when the lead already carries an organization.
	Link(ctx context.Context, link ConversionLink) error
	// ListStuck returns PENDING or PROVISIONED intents last updated before cutoff.
	ListStuck(ctx context.Context, cutoff time.Time) ([]*ConversionIntent, error)
}
