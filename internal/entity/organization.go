package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Billing states of an organization.
const (
	BillingTrial  = "TRIAL"
	BillingActive = "ACTIVE"
)

// InstituteProfile is the identity handed to the tenant provisioner.
type InstituteProfile struct {
	Name         string  `json:"name"`
	ContactName  string  `json:"contact_name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone,omitempty"`
	Address      Address `json:"address"`
	Website      string  `json:"website,omitempty"`
	LegalName    string  `json:"legal_name,omitempty"`
	SIRET        string  `json:"siret,omitempty"`
	AdminEmail   string  `json:"admin_email"`
	SourceLeadID string  `json:"source_lead_id"`
}

// BillingMandate is a captured SEPA direct-debit authorization.
type BillingMandate struct {
	IBAN          string    `json:"iban"`
	BIC           string    `json:"bic"`
	SIRET         string    `json:"siret"`
	AccountHolder string    `json:"account_holder"`
	Consent       bool      `json:"consent"`
	ConsentAt     time.Time `json:"consent_at"`
}

// Organization is a provisioned tenant.
type Organization struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Slug              string    `json:"slug"`
	Plan              PlanTier  `json:"plan"`
	OwnerName         string    `json:"owner_name"`
	OwnerEmail        string    `json:"owner_email"`
	OwnerPhone        string    `json:"owner_phone,omitempty"`
	Address           Address   `json:"address"`
	LegalName         string    `json:"legal_name,omitempty"`
	SIRET             string    `json:"siret,omitempty"`
	SourceLeadID      string    `json:"source_lead_id"`
	BillingStatus     string    `json:"billing_status"`
	BillingCustomerID string    `json:"billing_customer_id,omitempty"`
	MandateID         string    `json:"mandate_id,omitempty"`
	SubscriptionID    string    `json:"subscription_id,omitempty"`
	AdminEmail        string    `json:"admin_email"`
	AdminPasswordHash string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}

func NewOrganization(profile InstituteProfile, plan PlanTier, slug, passwordHash string, now time.Time) *Organization {
	return &Organization{
		ID:                uuid.New().String(),
		Name:              profile.Name,
		Slug:              slug,
		Plan:              plan,
		OwnerName:         profile.ContactName,
		OwnerEmail:        profile.Email,
		OwnerPhone:        profile.Phone,
		Address:           profile.Address,
		LegalName:         profile.LegalName,
		SIRET:             profile.SIRET,
		SourceLeadID:      profile.SourceLeadID,
		BillingStatus:     BillingTrial,
		AdminEmail:        profile.AdminEmail,
		AdminPasswordHash: passwordHash,
		CreatedAt:         now,
	}
}

// Credentials are the admin login handed out once at provisioning.
type Credentials struct {
	AdminEmail        string `json:"admin_email"`
	TemporaryPassword string `json:"temporary_password,omitempty"`
	LoginURL          string `json:"login_url"`
}

// ProvisionResult is what the tenant provisioner returns.
type ProvisionResult struct {
	OrganizationID    string
	Slug              string
	AdminEmail        string
	TemporaryPassword string
}

type OrganizationRepository interface {
	// Create fails with ErrSlugTaken when the slug is already used.
	Create(ctx context.Context, org *Organization) error
	FindByID(ctx context.Context, id string) (*Organization, error)
	// FindBySourceLead returns the newest organization provisioned from the
	// lead, or ErrOrganizationNotFound.
	FindBySourceLead(ctx context.Context, leadID string) (*Organization, error)
	UpdateBilling(ctx context.Context, org *Organization) error
	Delete(ctx context.Context, id string) error
}
