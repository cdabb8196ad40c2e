package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type ConversionRepository struct {
	DB *sql.DB
}

func NewConversionRepository(db *sql.DB) *ConversionRepository {
	return &ConversionRepository{DB: db}
}

const intentColumns = `id, lead_id, plan, with_billing, state, organization_id, slug, admin_email, last_error,
	requested_by, created_at, updated_at, provisioned_at, linked_at, notified_at, notification_error`

// Claim locks the lead row while it checks for a live intent. The partial
// unique index on lead_id still rejects a racing insert.
func (r *ConversionRepository) Claim(ctx context.Context, in *entity.ConversionIntent) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var orgID sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT organization_id FROM leads WHERE id = $1 FOR UPDATE`, in.LeadID).Scan(&orgID)
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ErrLeadNotFound
		}
		if err != nil {
			return fmt.Errorf("lock lead: %w", err)
		}
		if orgID.Valid {
			return entity.ErrAlreadyConverted
		}

		var state entity.IntentState
		err = tx.QueryRowContext(ctx, `
			SELECT state FROM conversion_intents WHERE lead_id = $1 AND state <> 'FAILED' LIMIT 1
		`, in.LeadID).Scan(&state)
		switch {
		case err == nil && state == entity.IntentLinked:
			return entity.ErrAlreadyConverted
		case err == nil:
			return entity.ErrConversionInProgress
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check intents: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversion_intents (id, lead_id, plan, with_billing, state, requested_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, in.ID, in.LeadID, in.Plan, in.WithBilling, in.State, nullString(in.RequestedBy), in.CreatedAt, in.UpdatedAt)
		if uniqueConstraint(err) == "conversion_intents_lead_live" {
			return entity.ErrConversionInProgress
		}
		if err != nil {
			return fmt.Errorf("insert intent: %w", err)
		}
		return nil
	})
}

func (r *ConversionRepository) Update(ctx context.Context, in *entity.ConversionIntent) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE conversion_intents SET
			state = $2, organization_id = $3, slug = $4, admin_email = $5, last_error = $6,
			updated_at = $7, provisioned_at = $8, linked_at = $9, notified_at = $10, notification_error = $11
		WHERE id = $1
	`,
		in.ID, in.State, nullString(in.OrganizationID), nullString(in.Slug), nullString(in.AdminEmail),
		nullString(in.LastError), in.UpdatedAt, in.ProvisionedAt, in.LinkedAt, in.NotifiedAt,
		nullString(in.NotificationError),
	)
	if err != nil {
		return fmt.Errorf("update intent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrIntentNotFound
	}
	return nil
}

func (r *ConversionRepository) FindByID(ctx context.Context, id string) (*entity.ConversionIntent, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+intentColumns+` FROM conversion_intents WHERE id = $1`, id)
	in, err := scanIntent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrIntentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find intent: %w", err)
	}
	return in, nil
}

// Link commits the lead link, the audit interaction and the LINKED intent
// in one transaction. The lead update is conditional on organization_id
// still being NULL.
func (r *ConversionRepository) Link(ctx context.Context, link entity.ConversionLink) error {
	in := link.Intent
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE leads SET
				organization_id = $2, status = 'WON', converted_at = $3,
				updated_at = $3, updated_by = COALESCE($4, updated_by)
			WHERE id = $1 AND organization_id IS NULL
		`, in.LeadID, in.OrganizationID, link.ConvertedAt, nullString(link.ActorID))
		if err != nil {
			return fmt.Errorf("link lead: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, in.LeadID).Scan(&exists); err != nil {
				return fmt.Errorf("link lead: %w", err)
			}
			if exists {
				return entity.ErrAlreadyConverted
			}
			return entity.ErrLeadNotFound
		}

		if link.Audit != nil {
			if err := appendInteraction(ctx, tx, link.Audit); err != nil {
				return err
			}
		}

		// the tenant fields are written again: the PROVISIONED update may
		// never have reached the table
		res, err = tx.ExecContext(ctx, `
			UPDATE conversion_intents SET
				state = 'LINKED', last_error = NULL, linked_at = $2, updated_at = $2,
				organization_id = $3, slug = $4, admin_email = COALESCE($5, admin_email),
				provisioned_at = COALESCE(provisioned_at, $6)
			WHERE id = $1
		`, in.ID, link.ConvertedAt, in.OrganizationID, nullString(in.Slug), nullString(in.AdminEmail), in.ProvisionedAt)
		if err != nil {
			return fmt.Errorf("link intent: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return entity.ErrIntentNotFound
		}
		return nil
	})
}

func (r *ConversionRepository) ListStuck(ctx context.Context, cutoff time.Time) ([]*entity.ConversionIntent, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+intentColumns+`
		FROM conversion_intents
		WHERE state IN ('PENDING', 'PROVISIONED') AND updated_at < $1
		ORDER BY updated_at
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stuck intents: %w", err)
	}
	defer rows.Close()

	var out []*entity.ConversionIntent
	for rows.Next() {
		in, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func scanIntent(row rowScanner) (*entity.ConversionIntent, error) {
	var (
		in                                  entity.ConversionIntent
		orgID, slug, adminEmail, lastErr    sql.NullString
		requestedBy, notificationErr        sql.NullString
		provisionedAt, linkedAt, notifiedAt sql.NullTime
	)
	err := row.Scan(
		&in.ID, &in.LeadID, &in.Plan, &in.WithBilling, &in.State, &orgID, &slug, &adminEmail, &lastErr,
		&requestedBy, &in.CreatedAt, &in.UpdatedAt, &provisionedAt, &linkedAt, &notifiedAt, &notificationErr,
	)
	if err != nil {
		return nil, err
	}
	in.OrganizationID = fromNull(orgID)
	in.Slug = fromNull(slug)
	in.AdminEmail = fromNull(adminEmail)
	in.LastError = fromNull(lastErr)
	in.RequestedBy = fromNull(requestedBy)
	in.NotificationError = fromNull(notificationErr)
	in.ProvisionedAt = fromNullTime(provisionedAt)
	in.LinkedAt = fromNullTime(linkedAt)
	in.NotifiedAt = fromNullTime(notifiedAt)
	in.CreatedAt = in.CreatedAt.UTC()
	in.UpdatedAt = in.UpdatedAt.UTC()
	return &in, nil
}

var (
	_ entity.LeadRepository         = (*LeadRepository)(nil)
	_ entity.InteractionRepository  = (*InteractionRepository)(nil)
	_ entity.DemoRepository         = (*DemoRepository)(nil)
	_ entity.OrganizationRepository = (*OrganizationRepository)(nil)
	_ entity.PlanRepository         = (*PlanRepository)(nil)
	_ entity.ConversionRepository   = (*ConversionRepository)(nil)
	_ entity.CheckpointRepository   = (*CheckpointRepository)(nil)
)
