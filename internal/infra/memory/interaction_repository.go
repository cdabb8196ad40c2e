package memory

import (
	"context"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type InteractionRepository struct{ s *Store }

func (r *InteractionRepository) Append(_ context.Context, in *entity.Interaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.appendInteractionLocked(in)
}

func (s *Store) appendInteractionLocked(in *entity.Interaction) error {
	lead, ok := s.leads[in.LeadID]
	if !ok {
		return entity.ErrLeadNotFound
	}
	s.interactions[in.LeadID] = append(s.interactions[in.LeadID], cloneInteraction(in))
	lead.RecordContact(in.CreatedAt, in.NextActionDate)
	return nil
}

func (r *InteractionRepository) ListByLead(_ context.Context, leadID string) ([]*entity.Interaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := r.s.interactions[leadID]
	out := make([]*entity.Interaction, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, cloneInteraction(list[i]))
	}
	return out, nil
}
