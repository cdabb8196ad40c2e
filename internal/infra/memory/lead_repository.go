package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type LeadRepository struct{ s *Store }

func (r *LeadRepository) Create(_ context.Context, lead *entity.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.leads[lead.ID]; ok {
		return entity.ErrConflict
	}
	r.s.leads[lead.ID] = cloneLead(lead)
	return nil
}

func (r *LeadRepository) FindByID(_ context.Context, id string) (*entity.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	lead, ok := r.s.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	return cloneLead(lead), nil
}

func (r *LeadRepository) List(_ context.Context, f entity.LeadFilter) ([]*entity.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Lead
	for _, l := range r.s.leads {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, l.Status) {
			continue
		}
		if f.AssignedTo != "" && l.AssignedTo != f.AssignedTo {
			continue
		}
		out = append(out, cloneLead(l))
	}

	// same order as the SQL store: newest first
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Offset >= len(out) {
		return []*entity.Lead{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Update keeps the stored organization link and last contact date.
func (r *LeadRepository) Update(_ context.Context, lead *entity.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.leads[lead.ID]
	if !ok {
		return entity.ErrLeadNotFound
	}
	if cur.IsConverted() && lead.Status != entity.StatusWon {
		return entity.ErrConvertedLeadLocked
	}

	next := cloneLead(lead)
	next.OrganizationID = cur.OrganizationID
	next.ConvertedAt = timePtr(cur.ConvertedAt)
	next.LastContactDate = timePtr(cur.LastContactDate)
	next.CreatedAt = cur.CreatedAt
	r.s.leads[lead.ID] = next
	return nil
}

func (r *LeadRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.leads[id]
	if !ok {
		return entity.ErrLeadNotFound
	}
	if cur.IsConverted() {
		return entity.ErrConvertedLeadDelete
	}
	for _, in := range r.s.intents {
		if in.LeadID == id && (in.State == entity.IntentPending || in.State == entity.IntentProvisioned) {
			return entity.ErrConversionInProgress
		}
	}

	delete(r.s.leads, id)
	delete(r.s.interactions, id)
	for bid, b := range r.s.bookings {
		if b.LeadID == id {
			delete(r.s.bookings, bid)
		}
	}
	for iid, in := range r.s.intents {
		if in.LeadID == id {
			delete(r.s.intents, iid)
		}
	}
	return nil
}
