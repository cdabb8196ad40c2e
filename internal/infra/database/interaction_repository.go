package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type InteractionRepository struct {
	DB *sql.DB
}

func NewInteractionRepository(db *sql.DB) *InteractionRepository {
	return &InteractionRepository{DB: db}
}

func (r *InteractionRepository) Append(ctx context.Context, in *entity.Interaction) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		return appendInteraction(ctx, tx, in)
	})
}

// appendInteraction inserts in and records the contact on its lead.
func appendInteraction(ctx context.Context, tx *sql.Tx, in *entity.Interaction) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE leads SET
			last_contact_date = $2,
			next_follow_up_date = COALESCE($3, next_follow_up_date)
		WHERE id = $1
	`, in.LeadID, in.CreatedAt, in.NextActionDate)
	if err != nil {
		return fmt.Errorf("touch lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrLeadNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO interactions (id, lead_id, type, subject, content, next_action, next_action_date, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		in.ID,
		in.LeadID,
		in.Type,
		nullString(in.Subject),
		in.Content,
		nullString(in.NextAction),
		in.NextActionDate,
		nullString(in.AuthorID),
		in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

func (r *InteractionRepository) ListByLead(ctx context.Context, leadID string) ([]*entity.Interaction, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, lead_id, type, subject, content, next_action, next_action_date, author_id, created_at
		FROM interactions
		WHERE lead_id = $1
		ORDER BY created_at DESC, id DESC
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	out := []*entity.Interaction{}
	for rows.Next() {
		var (
			in                          entity.Interaction
			subject, nextAction, author sql.NullString
			nextActionDate              sql.NullTime
		)
		if err := rows.Scan(&in.ID, &in.LeadID, &in.Type, &subject, &in.Content, &nextAction, &nextActionDate, &author, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.Subject = fromNull(subject)
		in.NextAction = fromNull(nextAction)
		in.NextActionDate = fromNullTime(nextActionDate)
		in.AuthorID = fromNull(author)
		in.CreatedAt = in.CreatedAt.UTC()
		out = append(out, &in)
	}
	return out, rows.Err()
}
