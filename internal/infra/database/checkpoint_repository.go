package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type CheckpointRepository struct {
	DB *sql.DB
}

func NewCheckpointRepository(db *sql.DB) *CheckpointRepository {
	return &CheckpointRepository{DB: db}
}

func (r *CheckpointRepository) Save(ctx context.Context, cp *entity.Checkpoint) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO checkpoints (workflow_id, step_id, payload, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workflow_id)
		DO UPDATE SET
			step_id = EXCLUDED.step_id,
			payload = EXCLUDED.payload,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`, cp.WorkflowID, cp.StepID, string(cp.Payload), nullString(cp.UpdatedBy), cp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (r *CheckpointRepository) Find(ctx context.Context, workflowID string) (*entity.Checkpoint, error) {
	var (
		cp        entity.Checkpoint
		payload   []byte
		updatedBy sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT workflow_id, step_id, payload, updated_by, updated_at FROM checkpoints WHERE workflow_id = $1
	`, workflowID).Scan(&cp.WorkflowID, &cp.StepID, &payload, &updatedBy, &cp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find checkpoint: %w", err)
	}
	cp.Payload = payload
	cp.UpdatedBy = fromNull(updatedBy)
	cp.UpdatedAt = cp.UpdatedAt.UTC()
	return &cp, nil
}

func (r *CheckpointRepository) Delete(ctx context.Context, workflowID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM checkpoints WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrCheckpointNotFound
	}
	return nil
}
