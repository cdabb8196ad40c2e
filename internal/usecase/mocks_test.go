package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/infra/integration/billing"
	"github.com/xavierca1/institut-pipeline/internal/infra/memory"
)

var clock = time.Date(2024, 5, 31, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return clock }

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendOnboarding(ctx context.Context, msg entity.OnboardingMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockEventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishLeadConverted(ctx context.Context, event entity.LeadConvertedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockProvisioner
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) CreateOrganization(ctx context.Context, req ProvisionRequest) (*entity.ProvisionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProvisionResult), args.Error(1)
}

// MockBillingGateway
type MockBillingGateway struct {
	mock.Mock
}

func (m *MockBillingGateway) CreateCustomer(ctx context.Context, input billing.CustomerInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockBillingGateway) DeleteCustomer(ctx context.Context, customerID string) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

func (m *MockBillingGateway) CreateMandate(ctx context.Context, input billing.MandateInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockBillingGateway) RevokeMandate(ctx context.Context, mandateID string) error {
	args := m.Called(ctx, mandateID)
	return args.Error(0)
}

func (m *MockBillingGateway) CreateSubscription(ctx context.Context, input billing.SubscriptionInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockBillingGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

// failingLinks wraps a conversion repository whose Link always fails.
type failingLinks struct {
	entity.ConversionRepository
	err error
}

func (f *failingLinks) Link(context.Context, entity.ConversionLink) error { return f.err }

func seedLead(store *memory.Store, name, email string) *entity.Lead {
	lead, err := entity.NewLead(entity.LeadInput{
		InstitutName: name,
		ContactName:  "Camille Martin",
		Email:        email,
		Phone:        "+33612345678",
		Address:      entity.Address{Street: "12 rue des Lilas", PostalCode: "69003", City: "Lyon", Country: "FR"},
	}, "op-1", clock.Add(-48*time.Hour))
	if err != nil {
		panic(err)
	}
	if err := store.Leads().Create(context.Background(), lead); err != nil {
		panic(err)
	}
	return lead
}
