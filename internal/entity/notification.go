package entity

import "time"

// OnboardingMessage is the welcome notification of a new tenant. An empty
// TemporaryPassword means the credentials were already handed out and the
// message only announces the tenant is ready.
type OnboardingMessage struct {
	LeadID            string   `json:"lead_id"`
	IntentID          string   `json:"intent_id"`
	RecipientEmail    string   `json:"recipient_email"`
	RecipientPhone    string   `json:"recipient_phone,omitempty"`
	InstitutName      string   `json:"institut_name"`
	ContactName       string   `json:"contact_name,omitempty"`
	LoginEmail        string   `json:"login_email"`
	TemporaryPassword string   `json:"temporary_password,omitempty"`
	LoginURL          string   `json:"login_url"`
	Plan              PlanTier `json:"plan"`
}

// LeadConvertedEvent is published once a conversion is linked.
type LeadConvertedEvent struct {
	LeadID         string    `json:"lead_id"`
	IntentID       string    `json:"intent_id"`
	OrganizationID string    `json:"organization_id"`
	Slug           string    `json:"slug"`
	Plan           PlanTier  `json:"plan"`
	WithBilling    bool      `json:"with_billing"`
	ConvertedBy    string    `json:"converted_by,omitempty"`
	ConvertedAt    time.Time `json:"converted_at"`
}
