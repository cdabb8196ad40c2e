package memory

import (
	"context"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type CheckpointRepository struct{ s *Store }

func (r *CheckpointRepository) Save(_ context.Context, cp *entity.Checkpoint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.checkpoints[cp.WorkflowID] = cloneCheckpoint(cp)
	return nil
}

func (r *CheckpointRepository) Find(_ context.Context, workflowID string) (*entity.Checkpoint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp, ok := r.s.checkpoints[workflowID]
	if !ok {
		return nil, entity.ErrCheckpointNotFound
	}
	return cloneCheckpoint(cp), nil
}

func (r *CheckpointRepository) Delete(_ context.Context, workflowID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.checkpoints[workflowID]; !ok {
		return entity.ErrCheckpointNotFound
	}
	delete(r.s.checkpoints, workflowID)
	return nil
}
