// Package cache holds read-through decorators backed by an in-process
// ristretto cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

const listKey = "plans:all"

// PlanRepository serves the plan catalog from memory and falls back to the
// wrapped repository on a miss. Entries expire after ttl; the catalog only
// changes through migrations.
type PlanRepository struct {
	next  entity.PlanRepository
	cache *ristretto.Cache[string, []byte]
	ttl   time.Duration
}

// NewPlanRepository wraps next. maxCostBytes bounds the total size of the
// cached JSON.
func NewPlanRepository(next entity.PlanRepository, ttl time.Duration, maxCostBytes int64) (*PlanRepository, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: max(maxCostBytes/100*10, 100),
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("plan cache: %w", err)
	}
	return &PlanRepository{next: next, cache: c, ttl: ttl}, nil
}

func (r *PlanRepository) FindByCode(ctx context.Context, code entity.PlanTier) (*entity.Plan, error) {
	key := "plan:" + string(code)
	if data, ok := r.cache.Get(key); ok {
		var p entity.Plan
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
	}

	p, err := r.next.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.set(key, p)
	return p, nil
}

func (r *PlanRepository) List(ctx context.Context) ([]entity.Plan, error) {
	if data, ok := r.cache.Get(listKey); ok {
		var plans []entity.Plan
		if err := json.Unmarshal(data, &plans); err == nil {
			return plans, nil
		}
	}

	plans, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}
	r.set(listKey, plans)
	return plans, nil
}

// Invalidate drops every cached entry.
func (r *PlanRepository) Invalidate() {
	r.cache.Clear()
}

func (r *PlanRepository) Close() {
	r.cache.Close()
}

func (r *PlanRepository) set(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	r.cache.SetWithTTL(key, data, int64(len(data)), r.ttl)
	// make the entry visible to the next Get
	r.cache.Wait()
}

var _ entity.PlanRepository = (*PlanRepository)(nil)
