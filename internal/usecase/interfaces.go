package usecase

import (
	"context"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/infra/integration/billing"
)

// BillingGateway captures SEPA mandates and runs subscriptions.
type BillingGateway interface {
	CreateCustomer(ctx context.Context, input billing.CustomerInput) (string, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	CreateMandate(ctx context.Context, input billing.MandateInput) (string, error)
	RevokeMandate(ctx context.Context, mandateID string) error
	CreateSubscription(ctx context.Context, input billing.SubscriptionInput) (string, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// TenantProvisioner creates organizations. Either the whole tenant exists
// when it returns nil, or nothing does.
type TenantProvisioner interface {
	CreateOrganization(ctx context.Context, req ProvisionRequest) (*entity.ProvisionResult, error)
}

// OnboardingNotifier delivers the welcome message of a new tenant.
type OnboardingNotifier interface {
	SendOnboarding(ctx context.Context, msg entity.OnboardingMessage) error
}

// EventPublisher announces finished conversions to other services.
type EventPublisher interface {
	PublishLeadConverted(ctx context.Context, event entity.LeadConvertedEvent) error
}
