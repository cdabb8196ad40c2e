// Package memory is an in-process implementation of every repository. All
// repositories of a Store share one lock, so the conditional writes that
// Postgres enforces with constraints and transactions hold here too.
package memory

import (
	"sync"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

// DefaultPlans mirrors the catalog seeded by the database migrations.
var DefaultPlans = []entity.Plan{
	{Code: entity.PlanSolo, Name: "Solo", PriceCents: 4900, BillingPlanCode: "institut-solo-monthly", Seats: 1},
	{Code: entity.PlanDuo, Name: "Duo", PriceCents: 7900, BillingPlanCode: "institut-duo-monthly", Seats: 2},
	{Code: entity.PlanTeam, Name: "Team", PriceCents: 11900, BillingPlanCode: "institut-team-monthly", Seats: 5},
	{Code: entity.PlanPremium, Name: "Premium", PriceCents: 19900, BillingPlanCode: "institut-premium-monthly", Seats: 15},
}

type Store struct {
	mu sync.Mutex

	leads        map[string]*entity.Lead
	interactions map[string][]*entity.Interaction // lead id -> append order
	slots        map[string]*entity.DemoSlot
	bookings     map[string]*entity.DemoBooking
	orgs         map[string]*entity.Organization
	plans        map[entity.PlanTier]entity.Plan
	intents      map[string]*entity.ConversionIntent
	checkpoints  map[string]*entity.Checkpoint
}

func NewStore() *Store {
	s := &Store{
		leads:        make(map[string]*entity.Lead),
		interactions: make(map[string][]*entity.Interaction),
		slots:        make(map[string]*entity.DemoSlot),
		bookings:     make(map[string]*entity.DemoBooking),
		orgs:         make(map[string]*entity.Organization),
		plans:        make(map[entity.PlanTier]entity.Plan),
		intents:      make(map[string]*entity.ConversionIntent),
		checkpoints:  make(map[string]*entity.Checkpoint),
	}
	for _, p := range DefaultPlans {
		s.plans[p.Code] = p
	}
	return s
}

func (s *Store) Leads() *LeadRepository                 { return &LeadRepository{s} }
func (s *Store) Interactions() *InteractionRepository   { return &InteractionRepository{s} }
func (s *Store) Demos() *DemoRepository                 { return &DemoRepository{s} }
func (s *Store) Organizations() *OrganizationRepository { return &OrganizationRepository{s} }
func (s *Store) Plans() *PlanRepository                 { return &PlanRepository{s} }
func (s *Store) Conversions() *ConversionRepository     { return &ConversionRepository{s} }
func (s *Store) Checkpoints() *CheckpointRepository     { return &CheckpointRepository{s} }

var (
	_ entity.LeadRepository         = (*LeadRepository)(nil)
	_ entity.InteractionRepository  = (*InteractionRepository)(nil)
	_ entity.DemoRepository         = (*DemoRepository)(nil)
	_ entity.OrganizationRepository = (*OrganizationRepository)(nil)
	_ entity.PlanRepository         = (*PlanRepository)(nil)
	_ entity.ConversionRepository   = (*ConversionRepository)(nil)
	_ entity.CheckpointRepository   = (*CheckpointRepository)(nil)
)
