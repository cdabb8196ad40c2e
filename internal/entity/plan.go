package entity

import (
	"context"
	"strings"
)

// PlanTier is the commercial tier chosen at conversion.
type PlanTier string

const (
	PlanSolo    PlanTier = "SOLO"
	PlanDuo     PlanTier = "DUO"
	PlanTeam    PlanTier = "TEAM"
	PlanPremium PlanTier = "PREMIUM"
)

func ParsePlanTier(s string) (PlanTier, error) {
	p := PlanTier(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PlanSolo, PlanDuo, PlanTeam, PlanPremium:
		return p, nil
	}
	return "", ErrInvalidPlan
}

// Plan is a row of the plan catalog.
type Plan struct {
	Code            PlanTier `json:"code"`
	Name            string   `json:"name"`
	PriceCents      int      `json:"price_cents"`
	BillingPlanCode string   `json:"billing_plan_code"`
	Seats           int      `json:"seats"`
}

type PlanRepository interface {
	FindByCode(ctx context.Context, code PlanTier) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
}
