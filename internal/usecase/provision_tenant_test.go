package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/infra/integration/billing"
	"github.com/xavierca1/institut-pipeline/internal/infra/memory"
	"github.com/xavierca1/institut-pipeline/internal/logger"
)

func newProvisioner(store *memory.Store, gw BillingGateway) *ProvisionTenantUseCase {
	uc := NewProvisionTenantUseCase(store.Organizations(), store.Plans(), gw, logger.Discard())
	uc.Now = fixedNow
	// bcrypt is exercised in TestProvisionStoresBcryptHash only
	uc.hash = func(p string) (string, error) { return "hashed:" + p, nil }
	return uc
}

func profile(name string) entity.InstituteProfile {
	return entity.InstituteProfile{
		Name:         name,
		ContactName:  "Camille Martin",
		Email:        "camille@bellepeau.fr",
		AdminEmail:   "camille@bellepeau.fr",
		SourceLeadID: "lead-1",
	}
}

func mandate() *entity.BillingMandate {
	return &entity.BillingMandate{
		IBAN:          "FR7630006000011234567890189",
		BIC:           "AGRIFRPP",
		SIRET:         "73282932000074",
		AccountHolder: "Belle Peau SARL",
		Consent:       true,
		ConsentAt:     clock,
	}
}

func TestProvisionLightPath(t *testing.T) {
	store := memory.NewStore()
	uc := newProvisioner(store, nil)

	res, err := uc.CreateOrganization(context.Background(), ProvisionRequest{Profile: profile("Institut Belle Peau"), Plan: entity.PlanSolo})
	require.NoError(t, err)
	assert.Equal(t, "institut-belle-peau", res.Slug)
	assert.Len(t, res.TemporaryPassword, temporaryPasswordLen)

	org, err := store.Organizations().FindByID(context.Background(), res.OrganizationID)
	require.NoError(t, err)
	assert.Equal(t, entity.PlanSolo, org.Plan)
	assert.Equal(t, entity.BillingTrial, org.BillingStatus)
	assert.Equal(t, "hashed:"+res.TemporaryPassword, org.AdminPasswordHash)
	assert.Equal(t, "lead-1", org.SourceLeadID)
}

func TestProvisionFullPathCreatesBilling(t *testing.T) {
	store := memory.NewStore()
	gw := new(MockBillingGateway)
	gw.On("CreateCustomer", mock.Anything, mock.MatchedBy(func(in billing.CustomerInput) bool {
		return in.SIRET == "73282932000074" && in.Reference != ""
	})).Return("cus_1", nil)
	gw.On("CreateMandate", mock.Anything, mock.MatchedBy(func(in billing.MandateInput) bool {
		return in.CustomerID == "cus_1" && in.IBAN == "FR7630006000011234567890189"
	})).Return("md_1", nil)
	gw.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(in billing.SubscriptionInput) bool {
		return in.MandateID == "md_1" && in.PlanCode == "institut-team-monthly" && in.AmountCents == 11900
	})).Return("sub_1", nil)

	uc := newProvisioner(store, gw)
	res, err := uc.CreateOrganization(context.Background(), ProvisionRequest{
		Profile: profile("Institut Belle Peau"),
		Plan:    entity.PlanTeam,
		Mandate: mandate(),
	})
	require.NoError(t, err)

	org, err := store.Organizations().FindByID(context.Background(), res.OrganizationID)
	require.NoError(t, err)
	assert.Equal(t, entity.PlanTeam, org.Plan)
	assert.Equal(t, entity.BillingActive, org.BillingStatus)
	assert.Equal(t, "cus_1", org.BillingCustomerID)
	assert.Equal(t, "md_1", org.MandateID)
	assert.Equal(t, "sub_1", org.SubscriptionID)
	gw.AssertExpectations(t)
}

func TestProvisionCompensatesOnSubscriptionFailure(t *testing.T) {
	store := memory.NewStore()
	gw := new(MockBillingGateway)
	gw.On("CreateCustomer", mock.Anything, mock.Anything).Return("cus_1", nil)
	gw.On("CreateMandate", mock.Anything, mock.Anything).Return("md_1", nil)
	gw.On("CreateSubscription", mock.Anything, mock.Anything).Return("", errors.New("plan archived"))
	gw.On("RevokeMandate", mock.Anything, "md_1").Return(nil)
	gw.On("DeleteCustomer", mock.Anything, "cus_1").Return(nil)

	uc := newProvisioner(store, gw)
	_, err := uc.CreateOrganization(context.Background(), ProvisionRequest{
		Profile: profile("Institut Belle Peau"),
		Plan:    entity.PlanDuo,
		Mandate: mandate(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create_subscription")
	assert.True(t, IsTechnicalError(err))

	assert.Empty(t, store.Organizations().All(), "organization is deleted")
	gw.AssertCalled(t, "RevokeMandate", mock.Anything, "md_1")
	gw.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
	gw.AssertCalled(t, "DeleteCustomer", mock.Anything, "cus_1")
}

func TestProvisionDeletesBillingCustomerOnMandateFailure(t *testing.T) {
	store := memory.NewStore()
	gw := new(MockBillingGateway)
	gw.On("CreateCustomer", mock.Anything, mock.Anything).Return("cus_1", nil)
	gw.On("CreateMandate", mock.Anything, mock.Anything).Return("", errors.New("iban rejected"))
	gw.On("DeleteCustomer", mock.Anything, "cus_1").Return(nil)

	uc := newProvisioner(store, gw)
	_, err := uc.CreateOrganization(context.Background(), ProvisionRequest{
		Profile: profile("Institut Belle Peau"),
		Plan:    entity.PlanSolo,
		Mandate: mandate(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create_mandate")

	assert.Empty(t, store.Organizations().All())
	gw.AssertCalled(t, "DeleteCustomer", mock.Anything, "cus_1")
	gw.AssertNotCalled(t, "RevokeMandate", mock.Anything, mock.Anything)
}

func TestProvisionRetriesTakenSlug(t *testing.T) {
	store := memory.NewStore()
	uc := newProvisioner(store, nil)
	ctx := context.Background()

	first, err := uc.CreateOrganization(ctx, ProvisionRequest{Profile: profile("Belle Peau"), Plan: entity.PlanSolo})
	require.NoError(t, err)
	second, err := uc.CreateOrganization(ctx, ProvisionRequest{Profile: profile("Belle Peau"), Plan: entity.PlanSolo})
	require.NoError(t, err)

	assert.Equal(t, "belle-peau", first.Slug)
	assert.True(t, strings.HasPrefix(second.Slug, "belle-peau-"))
	assert.Len(t, second.Slug, len("belle-peau-")+slugSuffixLen)
}

type takenSlugs struct {
	entity.OrganizationRepository
	calls int
}

func (t *takenSlugs) Create(context.Context, *entity.Organization) error {
	t.calls++
	return entity.ErrSlugTaken
}

func TestProvisionGivesUpAfterSlugAttempts(t *testing.T) {
	store := memory.NewStore()
	orgs := &takenSlugs{OrganizationRepository: store.Organizations()}
	uc := newProvisioner(store, nil)
	uc.Orgs = orgs

	_, err := uc.CreateOrganization(context.Background(), ProvisionRequest{Profile: profile("Belle Peau"), Plan: entity.PlanSolo})
	assert.ErrorIs(t, err, entity.ErrSlugTaken)
	assert.Equal(t, slugAttempts+1, orgs.calls)
}

func TestProvisionUnknownPlan(t *testing.T) {
	uc := newProvisioner(memory.NewStore(), nil)
	_, err := uc.CreateOrganization(context.Background(), ProvisionRequest{Profile: profile("X Y Z"), Plan: "GOLD"})
	assert.ErrorIs(t, err, entity.ErrPlanNotFound)
}

func TestProvisionStoresBcryptHash(t *testing.T) {
	store := memory.NewStore()
	uc := NewProvisionTenantUseCase(store.Organizations(), store.Plans(), nil, logger.Discard())

	res, err := uc.CreateOrganization(context.Background(), ProvisionRequest{Profile: profile("Institut Bcrypt"), Plan: entity.PlanSolo})
	require.NoError(t, err)

	org, _ := store.Organizations().FindByID(context.Background(), res.OrganizationID)
	assert.NotContains(t, org.AdminPasswordHash, res.TemporaryPassword)
	assert.True(t, CheckPassword(org.AdminPasswordHash, res.TemporaryPassword))
}
