package memory

import (
	"context"
	"sort"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type OrganizationRepository struct{ s *Store }

func (r *OrganizationRepository) Create(_ context.Context, org *entity.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.orgs {
		if o.Slug == org.Slug {
			return entity.ErrSlugTaken
		}
	}
	if _, ok := r.s.orgs[org.ID]; ok {
		return entity.ErrConflict
	}
	c := *org
	r.s.orgs[org.ID] = &c
	return nil
}

func (r *OrganizationRepository) FindByID(_ context.Context, id string) (*entity.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orgs[id]
	if !ok {
		return nil, entity.ErrOrganizationNotFound
	}
	c := *o
	return &c, nil
}

func (r *OrganizationRepository) FindBySourceLead(_ context.Context, leadID string) (*entity.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var found *entity.Organization
	for _, o := range r.s.orgs {
		if o.SourceLeadID != leadID {
			continue
		}
		if found == nil || o.CreatedAt.After(found.CreatedAt) {
			found = o
		}
	}
	if found == nil {
		return nil, entity.ErrOrganizationNotFound
	}
	c := *found
	return &c, nil
}

func (r *OrganizationRepository) UpdateBilling(_ context.Context, org *entity.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orgs[org.ID]
	if !ok {
		return entity.ErrOrganizationNotFound
	}
	o.BillingStatus = org.BillingStatus
	o.BillingCustomerID = org.BillingCustomerID
	o.MandateID = org.MandateID
	o.SubscriptionID = org.SubscriptionID
	return nil
}

func (r *OrganizationRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orgs[id]; !ok {
		return entity.ErrOrganizationNotFound
	}
	delete(r.s.orgs, id)
	return nil
}

// All returns every organization ordered by creation. Test helper.
func (r *OrganizationRepository) All() []entity.Organization {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]entity.Organization, 0, len(r.s.orgs))
	for _, o := range r.s.orgs {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type PlanRepository struct{ s *Store }

func (r *PlanRepository) FindByCode(_ context.Context, code entity.PlanTier) (*entity.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.plans[code]
	if !ok {
		return nil, entity.ErrPlanNotFound
	}
	return &p, nil
}

func (r *PlanRepository) List(_ context.Context) ([]entity.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]entity.Plan, 0, len(r.s.plans))
	for _, p := range r.s.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	return out, nil
}
