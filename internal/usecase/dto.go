package usecase

import (
	"encoding/json"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

// ============ LEADS ============

type CreateLeadInput struct {
	InstitutName        string         `json:"institut_name"`
	ContactName         string         `json:"contact_name"`
	Email               string         `json:"email"`
	Phone               string         `json:"phone"`
	Address             entity.Address `json:"address"`
	Website             string         `json:"website"`
	EstimatedValueCents int64          `json:"estimated_value_cents"`
	Source              string         `json:"source"`
	AssignedTo          string         `json:"assigned_to"`
	ActorID             string         `json:"-"`
}

// UpdateLeadInput is a patch: nil fields are left untouched.
type UpdateLeadInput struct {
	LeadID              string          `json:"-"`
	InstitutName        *string         `json:"institut_name"`
	ContactName         *string         `json:"contact_name"`
	Email               *string         `json:"email"`
	Phone               *string         `json:"phone"`
	Address             *entity.Address `json:"address"`
	Website             *string         `json:"website"`
	EstimatedValueCents *int64          `json:"estimated_value_cents"`
	Source              *string         `json:"source"`
	AssignedTo          *string         `json:"assigned_to"`
	NextFollowUpDate    *time.Time      `json:"next_follow_up_date"`
	ActorID             string          `json:"-"`
}

type ListLeadsInput struct {
	Statuses   []string
	AssignedTo string
	Limit      int
	Offset     int
}

type TransitionStatusInput struct {
	LeadID  string `json:"-"`
	Status  string `json:"status"`
	Reopen  bool   `json:"reopen"`
	ActorID string `json:"-"`
}

// SetQualificationInput sets the tag; a nil Qualification clears it.
type SetQualificationInput struct {
	LeadID        string  `json:"-"`
	Qualification *string `json:"qualification"`
	ActorID       string  `json:"-"`
}

type SetScoringInput struct {
	LeadID      string `json:"-"`
	Score       int    `json:"score"`
	Probability int    `json:"probability"`
	ActorID     string `json:"-"`
}

// ============ INTERACTIONS ============

type AppendInteractionInput struct {
	LeadID         string     `json:"-"`
	Type           string     `json:"type"`
	Subject        string     `json:"subject"`
	Content        string     `json:"content"`
	NextAction     string     `json:"next_action"`
	NextActionDate *time.Time `json:"next_action_date"`
	AuthorID       string     `json:"-"`
}

// Timeline entry kinds.
const (
	TimelineInteraction = "interaction"
	TimelineDemo        = "demo"
)

// TimelineEntry is one row of a lead's history: either an interaction or
// the lead's current demo booking.
type TimelineEntry struct {
	Kind        string              `json:"kind"`
	At          time.Time           `json:"at"`
	Interaction *entity.Interaction `json:"interaction,omitempty"`
	Booking     *entity.DemoBooking `json:"booking,omitempty"`
}

// ============ DEMO ============

type CreateSlotInput struct {
	Date            time.Time `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	ActorID         string    `json:"-"`
}

type BookSlotInput struct {
	SlotID   string `json:"-"`
	LeadID   string `json:"lead_id"`
	Type     string `json:"type"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
	ActorID  string `json:"-"`
}

// ============ CONVERSION ============

type BillingInput struct {
	SIRET          string `json:"siret"`
	IBAN           string `json:"iban"`
	BIC            string `json:"bic"`
	AccountHolder  string `json:"account_holder"`
	LegalName      string `json:"legal_name"`
	MandateConsent bool   `json:"mandate_consent"`
}

// ConvertLeadInput requests a conversion. Billing nil means the light path:
// the tenant starts in trial without a mandate.
type ConvertLeadInput struct {
	LeadID           string        `json:"-"`
	Plan             string        `json:"plan"`
	OrganizationName string        `json:"organization_name"`
	AdminEmail       string        `json:"admin_email"`
	Billing          *BillingInput `json:"billing"`
	ActorID          string        `json:"-"`
}

type ConvertLeadOutput struct {
	IntentID          string             `json:"intent_id"`
	LeadID            string             `json:"lead_id"`
	LeadStatus        entity.LeadStatus  `json:"lead_status"`
	OrganizationID    string             `json:"organization_id"`
	Slug              string             `json:"slug"`
	Plan              entity.PlanTier    `json:"plan"`
	Credentials       entity.Credentials `json:"credentials"`
	Resumed           bool               `json:"resumed"`
	NotificationSent  bool               `json:"notification_sent"`
	NotificationError string             `json:"notification_error,omitempty"`
}

// ProvisionRequest is the input of the tenant provisioner.
type ProvisionRequest struct {
	Profile entity.InstituteProfile
	Plan    entity.PlanTier
	Mandate *entity.BillingMandate
}

// ============ CHECKPOINTS ============

type SaveCheckpointInput struct {
	WorkflowID string          `json:"-"`
	StepID     string          `json:"step_id"`
	Payload    json.RawMessage `json:"payload"`
	ActorID    string          `json:"-"`
}
