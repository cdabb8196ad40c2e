package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/infra/integration/billing"
	"github.com/xavierca1/institut-pipeline/internal/logger"
)

const slugAttempts = 3

// ProvisionTenantUseCase creates an organization with its admin account and,
// when a mandate is given, its SEPA billing. Every step that succeeded is
// compensated when a later one fails.
type ProvisionTenantUseCase struct {
	Orgs    entity.OrganizationRepository
	Plans   entity.PlanRepository
	Gateway BillingGateway
	Logger  *slog.Logger
	Now     func() time.Time

	newPassword func() (string, error)
	hash        func(string) (string, error)
}

func NewProvisionTenantUseCase(orgs entity.OrganizationRepository, plans entity.PlanRepository, gateway BillingGateway, log *slog.Logger) *ProvisionTenantUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &ProvisionTenantUseCase{
		Orgs:        orgs,
		Plans:       plans,
		Gateway:     gateway,
		Logger:      log,
		Now:         time.Now,
		newPassword: GenerateTemporaryPassword,
		hash:        HashPassword,
	}
}

func (uc *ProvisionTenantUseCase) CreateOrganization(ctx context.Context, req ProvisionRequest) (*entity.ProvisionResult, error) {
	log := logger.FromContext(ctx, uc.Logger).With("lead_id", req.Profile.SourceLeadID, "plan", req.Plan)

	plan, err := uc.Plans.FindByCode(ctx, req.Plan)
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", req.Plan, err)
	}
	if req.Mandate != nil && uc.Gateway == nil {
		return nil, &TechnicalError{Code: "BILLING_UNAVAILABLE", Message: "billing gateway is not configured"}
	}

	password, err := uc.newPassword()
	if err != nil {
		return nil, err
	}
	hash, err := uc.hash(password)
	if err != nil {
		return nil, err
	}

	now := uc.Now().UTC()
	org := entity.NewOrganization(req.Profile, plan.Code, Slugify(req.Profile.Name), hash, now)

	txn := NewTransaction(log)

	txn.AddOperation("create_organization", func(ctx context.Context) error {
		return uc.createWithUniqueSlug(ctx, org)
	})
	txn.AddCompensation("delete_organization", func(ctx context.Context) error {
		return uc.Orgs.Delete(ctx, org.ID)
	})

	if m := req.Mandate; m != nil {
		txn.AddOperation("create_billing_customer", func(ctx context.Context) error {
			id, err := uc.Gateway.CreateCustomer(ctx, billing.CustomerInput{
				Name:       org.Name,
				Email:      req.Profile.Email,
				Phone:      req.Profile.Phone,
				SIRET:      m.SIRET,
				Street:     req.Profile.Address.Street,
				PostalCode: req.Profile.Address.PostalCode,
				City:       req.Profile.Address.City,
				Country:    req.Profile.Address.Country,
				Reference:  org.ID,
			})
			org.BillingCustomerID = id
			return err
		})
		txn.AddCompensation("delete_billing_customer", func(ctx context.Context) error {
			return uc.Gateway.DeleteCustomer(ctx, org.BillingCustomerID)
		})

		txn.AddOperation("create_mandate", func(ctx context.Context) error {
			id, err := uc.Gateway.CreateMandate(ctx, billing.MandateInput{
				CustomerID:    org.BillingCustomerID,
				IBAN:          m.IBAN,
				BIC:           m.BIC,
				AccountHolder: m.AccountHolder,
				SignedAt:      m.ConsentAt.UTC().Format(time.RFC3339),
			})
			org.MandateID = id
			return err
		})
		txn.AddCompensation("revoke_mandate", func(ctx context.Context) error {
			return uc.Gateway.RevokeMandate(ctx, org.MandateID)
		})

		txn.AddOperation("create_subscription", func(ctx context.Context) error {
			id, err := uc.Gateway.CreateSubscription(ctx, billing.SubscriptionInput{
				CustomerID:  org.BillingCustomerID,
				MandateID:   org.MandateID,
				PlanCode:    plan.BillingPlanCode,
				AmountCents: plan.PriceCents,
				Description: fmt.Sprintf("Abonnement %s - %s", plan.Name, org.Name),
			})
			org.SubscriptionID = id
			return err
		})
		txn.AddCompensation("cancel_subscription", func(ctx context.Context) error {
			return uc.Gateway.CancelSubscription(ctx, org.SubscriptionID)
		})

		txn.AddOperation("record_billing", func(ctx context.Context) error {
			org.BillingStatus = entity.BillingActive
			return uc.Orgs.UpdateBilling(ctx, org)
		})
	}

	if err := txn.Execute(ctx); err != nil {
		return nil, &TechnicalError{Code: "TENANT_PROVISIONING", Message: "provision tenant " + org.Slug, Err: err}
	}

	log.Info("organization provisioned", "organization_id", org.ID, "slug", org.Slug, "billing", org.BillingStatus)
	return &entity.ProvisionResult{
		OrganizationID:    org.ID,
		Slug:              org.Slug,
		AdminEmail:        org.AdminEmail,
		TemporaryPassword: password,
	}, nil
}

// createWithUniqueSlug retries a taken slug with a random suffix.
func (uc *ProvisionTenantUseCase) createWithUniqueSlug(ctx context.Context, org *entity.Organization) error {
	base := org.Slug
	for attempt := 0; attempt <= slugAttempts; attempt++ {
		if attempt > 0 {
			slug, err := withSuffix(base)
			if err != nil {
				return err
			}
			org.Slug = slug
		}
		err := uc.Orgs.Create(ctx, org)
		if !errors.Is(err, entity.ErrSlugTaken) {
			return err
		}
	}
	return fmt.Errorf("slug %q: %w", base, entity.ErrSlugTaken)
}
