package entity

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Checkpoint is the last saved step of a multi-step operator workflow.
type Checkpoint struct {
	WorkflowID string          `json:"workflow_id"`
	StepID     string          `json:"step_id"`
	Payload    json.RawMessage `json:"payload"`
	UpdatedBy  string          `json:"updated_by,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func NewCheckpoint(workflowID, stepID string, payload json.RawMessage, actor string, now time.Time) (*Checkpoint, error) {
	workflowID = strings.TrimSpace(workflowID)
	stepID = strings.TrimSpace(stepID)
	if workflowID == "" || stepID == "" {
		return nil, newError(ErrInvalid, "workflow id and step id are required")
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if !json.Valid(payload) {
		return nil, newError(ErrInvalid, "checkpoint payload must be valid JSON")
	}
	return &Checkpoint{
		WorkflowID: workflowID,
		StepID:     stepID,
		Payload:    payload,
		UpdatedBy:  actor,
		UpdatedAt:  now,
	}, nil
}

type CheckpointRepository interface {
	// Save upserts by workflow id; the last checkpoint wins.
	Save(ctx context.Context, cp *Checkpoint) error
	Find(ctx context.Context, workflowID string) (*Checkpoint, error)
	Delete(ctx context.Context, workflowID string) error
}
