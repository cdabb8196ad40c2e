package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

// CheckpointUseCase keeps the last step of multi-step operator forms so
// they can resume where they stopped.
type CheckpointUseCase struct {
	Repo   entity.CheckpointRepository
	Logger *slog.Logger
	Now    func() time.Time
}

func NewCheckpointUseCase(repo entity.CheckpointRepository, log *slog.Logger) *CheckpointUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &CheckpointUseCase{Repo: repo, Logger: log, Now: time.Now}
}

func (uc *CheckpointUseCase) Save(ctx context.Context, input SaveCheckpointInput) (*entity.Checkpoint, error) {
	cp, err := entity.NewCheckpoint(input.WorkflowID, input.StepID, input.Payload, input.ActorID, uc.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := uc.Repo.Save(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

func (uc *CheckpointUseCase) Resume(ctx context.Context, workflowID string) (*entity.Checkpoint, error) {
	return uc.Repo.Find(ctx, workflowID)
}

// Clear is idempotent.
func (uc *CheckpointUseCase) Clear(ctx context.Context, workflowID string) error {
	err := uc.Repo.Delete(ctx, workflowID)
	if errors.Is(err, entity.ErrCheckpointNotFound) {
		return nil
	}
	return err
}
