package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/logger"
)

const maxListLimit = 200

// LeadUseCase owns lead CRUD and the qualification engine: status,
// qualification tag and scoring, each changed by its own operation.
type LeadUseCase struct {
	Repo   entity.LeadRepository
	Logger *slog.Logger
	Now    func() time.Time
}

func NewLeadUseCase(repo entity.LeadRepository, log *slog.Logger) *LeadUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &LeadUseCase{Repo: repo, Logger: log, Now: time.Now}
}

func (uc *LeadUseCase) Create(ctx context.Context, input CreateLeadInput) (*entity.Lead, error) {
	lead, err := entity.NewLead(entity.LeadInput{
		InstitutName:        input.InstitutName,
		ContactName:         input.ContactName,
		Email:               input.Email,
		Phone:               input.Phone,
		Address:             input.Address,
		Website:             input.Website,
		EstimatedValueCents: input.EstimatedValueCents,
		Source:              input.Source,
		AssignedTo:          input.AssignedTo,
	}, input.ActorID, uc.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := uc.Repo.Create(ctx, lead); err != nil {
		return nil, err
	}

	logger.FromContext(ctx, uc.Logger).Info("lead created", "lead_id", lead.ID, "source", lead.Source)
	return lead, nil
}

func (uc *LeadUseCase) Get(ctx context.Context, id string) (*entity.Lead, error) {
	return uc.Repo.FindByID(ctx, id)
}

func (uc *LeadUseCase) List(ctx context.Context, input ListLeadsInput) ([]*entity.Lead, error) {
	filter := entity.LeadFilter{
		AssignedTo: strings.TrimSpace(input.AssignedTo),
		Limit:      input.Limit,
		Offset:     input.Offset,
	}
	for _, raw := range input.Statuses {
		st, err := entity.ParseLeadStatus(raw)
		if err != nil {
			return nil, ValidationErrors{{Field: "status", Message: "unknown status " + raw}}
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.Repo.List(ctx, filter)
}

// Update patches the editable identity of a lead. Pipeline attributes have
// their own operations.
func (uc *LeadUseCase) Update(ctx context.Context, input UpdateLeadInput) (*entity.Lead, error) {
	lead, err := uc.Repo.FindByID(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}

	if input.InstitutName != nil {
		lead.InstitutName = strings.TrimSpace(*input.InstitutName)
	}
	if input.ContactName != nil {
		lead.ContactName = strings.TrimSpace(*input.ContactName)
	}
	if input.Email != nil {
		lead.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Phone != nil {
		lead.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		lead.Address = *input.Address
	}
	if input.Website != nil {
		lead.Website = strings.TrimSpace(*input.Website)
	}
	if input.EstimatedValueCents != nil {
		lead.EstimatedValueCents = *input.EstimatedValueCents
	}
	if input.Source != nil {
		lead.Source = strings.TrimSpace(*input.Source)
	}
	if input.AssignedTo != nil {
		lead.AssignedTo = strings.TrimSpace(*input.AssignedTo)
	}
	if input.NextFollowUpDate != nil {
		d := input.NextFollowUpDate.UTC()
		lead.NextFollowUpDate = &d
	}
	if err := lead.Validate(); err != nil {
		return nil, err
	}

	lead.UpdatedAt = uc.Now().UTC()
	lead.UpdatedBy = input.ActorID
	if err := uc.Repo.Update(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

func (uc *LeadUseCase) Delete(ctx context.Context, id, actorID string) error {
	if err := uc.Repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.FromContext(ctx, uc.Logger).Info("lead deleted", "lead_id", id, "actor", actorID)
	return nil
}

func (uc *LeadUseCase) TransitionStatus(ctx context.Context, input TransitionStatusInput) (*entity.Lead, error) {
	to, err := entity.ParseLeadStatus(input.Status)
	if err != nil {
		return nil, err
	}

	lead, err := uc.Repo.FindByID(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}

	from := lead.Status
	changed, err := lead.Transition(to, input.Reopen, input.ActorID, uc.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !changed {
		return lead, nil
	}

	if err := uc.Repo.Update(ctx, lead); err != nil {
		return nil, err
	}

	logger.FromContext(ctx, uc.Logger).Info("lead status changed",
		"lead_id", lead.ID, "from", from, "to", to, "reopen", input.Reopen, "actor", input.ActorID)
	return lead, nil
}

func (uc *LeadUseCase) SetQualification(ctx context.Context, input SetQualificationInput) (*entity.Lead, error) {
	var q *entity.Qualification
	if input.Qualification != nil {
		parsed, err := entity.ParseQualification(*input.Qualification)
		if err != nil {
			return nil, err
		}
		q = &parsed
	}

	lead, err := uc.Repo.FindByID(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}
	if err := lead.SetQualification(q, input.ActorID, uc.Now().UTC()); err != nil {
		return nil, err
	}
	if err := uc.Repo.Update(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

func (uc *LeadUseCase) ClearQualification(ctx context.Context, leadID, actorID string) (*entity.Lead, error) {
	return uc.SetQualification(ctx, SetQualificationInput{LeadID: leadID, ActorID: actorID})
}

func (uc *LeadUseCase) SetScoring(ctx context.Context, input SetScoringInput) (*entity.Lead, error) {
	lead, err := uc.Repo.FindByID(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}
	if err := lead.SetScoring(input.Score, input.Probability, input.ActorID, uc.Now().UTC()); err != nil {
		return nil, err
	}
	if err := uc.Repo.Update(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}
