package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type PlanRepository struct {
	DB *sql.DB
}

func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{DB: db}
}

func (r *PlanRepository) FindByCode(ctx context.Context, code entity.PlanTier) (*entity.Plan, error) {
	query := `SELECT code, name, price_cents, billing_plan_code, seats FROM plans WHERE code = $1`

	var plan entity.Plan
	err := r.DB.QueryRowContext(ctx, query, code).Scan(
		&plan.Code,
		&plan.Name,
		&plan.PriceCents,
		&plan.BillingPlanCode,
		&plan.Seats,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find plan: %w", err)
	}
	return &plan, nil
}

func (r *PlanRepository) List(ctx context.Context) ([]entity.Plan, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT code, name, price_cents, billing_plan_code, seats FROM plans ORDER BY price_cents
	`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []entity.Plan
	for rows.Next() {
		var p entity.Plan
		if err := rows.Scan(&p.Code, &p.Name, &p.PriceCents, &p.BillingPlanCode, &p.Seats); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}
