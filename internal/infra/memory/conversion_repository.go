package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type ConversionRepository struct{ s *Store }

func (r *ConversionRepository) Claim(_ context.Context, intent *entity.ConversionIntent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	lead, ok := r.s.leads[intent.LeadID]
	if !ok {
		return entity.ErrLeadNotFound
	}
	if lead.IsConverted() {
		return entity.ErrAlreadyConverted
	}
	for _, in := range r.s.intents {
		if in.LeadID != intent.LeadID || !in.State.Active() {
			continue
		}
		if in.State == entity.IntentLinked {
			return entity.ErrAlreadyConverted
		}
		return entity.ErrConversionInProgress
	}

	r.s.intents[intent.ID] = cloneIntent(intent)
	return nil
}

func (r *ConversionRepository) Update(_ context.Context, intent *entity.ConversionIntent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.intents[intent.ID]; !ok {
		return entity.ErrIntentNotFound
	}
	r.s.intents[intent.ID] = cloneIntent(intent)
	return nil
}

func (r *ConversionRepository) FindByID(_ context.Context, id string) (*entity.ConversionIntent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	in, ok := r.s.intents[id]
	if !ok {
		return nil, entity.ErrIntentNotFound
	}
	return cloneIntent(in), nil
}

// Link applies the whole link under one lock: nothing is written unless
// every check passes.
func (r *ConversionRepository) Link(_ context.Context, link entity.ConversionLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	intent, ok := r.s.intents[link.Intent.ID]
	if !ok {
		return entity.ErrIntentNotFound
	}
	lead, ok := r.s.leads[link.Intent.LeadID]
	if !ok {
		return entity.ErrLeadNotFound
	}
	if lead.IsConverted() {
		return entity.ErrAlreadyConverted
	}

	if err := lead.MarkConverted(link.Intent.OrganizationID, link.ActorID, link.ConvertedAt); err != nil {
		return err
	}
	if link.Audit != nil {
		// lead exists, cannot fail
		_ = r.s.appendInteractionLocked(link.Audit)
	}

	linked := cloneIntent(link.Intent)
	linked.MarkLinked(link.ConvertedAt)
	*intent = *linked
	return nil
}

func (r *ConversionRepository) ListStuck(_ context.Context, cutoff time.Time) ([]*entity.ConversionIntent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.ConversionIntent
	for _, in := range r.s.intents {
		if in.Stuck(cutoff) {
			out = append(out, cloneIntent(in))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}
