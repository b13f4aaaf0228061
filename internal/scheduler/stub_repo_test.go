package scheduler

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"autodca/internal/models"
	"autodca/internal/repository"
)

// stubRepo is an in-memory Repository for scheduler tests.
type stubRepo struct {
	mu          sync.Mutex
	plans       map[uint64]*models.Plan
	controllers map[string]*models.Controller
	records     []models.ExecutionRecord
	events      []models.PlanEvent
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		plans:       make(map[uint64]*models.Plan),
		controllers: make(map[string]*models.Controller),
	}
}

func (r *stubRepo) addPlan(p *models.Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.plans[p.ID] = &cp
}

func (r *stubRepo) addController(c *models.Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controllers[c.OwnerAddress] = c
}

func (r *stubRepo) plan(id uint64) *models.Plan {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.plans[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (r *stubRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Type)
	}
	return out
}

func (r *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *stubRepo) UpsertController(ctx context.Context, item *models.Controller) error {
	r.addController(item)
	return nil
}

func (r *stubRepo) GetControllerByOwner(ctx context.Context, owner string) (*models.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controllers[owner], nil
}

func (r *stubRepo) InsertPlan(ctx context.Context, item *models.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.ID == 0 {
		item.ID = uint64(len(r.plans) + 1)
	}
	cp := *item
	r.plans[item.ID] = &cp
	return nil
}

func (r *stubRepo) GetPlanByID(ctx context.Context, id uint64) (*models.Plan, error) {
	return r.plan(id), nil
}

func (r *stubRepo) ListPlans(ctx context.Context, params repository.ListPlansParams) ([]models.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Plan
	for _, p := range r.plans {
		if params.Owner != nil && p.OwnerAddress != *params.Owner {
			continue
		}
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (r *stubRepo) CountPlansByOwner(ctx context.Context, owner string) (int64, error) {
	items, _ := r.ListPlans(ctx, repository.ListPlansParams{Owner: &owner})
	return int64(len(items)), nil
}

func (r *stubRepo) SavePlan(ctx context.Context, item *models.Plan) error {
	r.addPlan(item)
	return nil
}

func (r *stubRepo) DeletePlan(ctx context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.plans, id)
	return nil
}

func (r *stubRepo) ListDuePlans(ctx context.Context, now time.Time, limit int) ([]models.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Plan
	for _, p := range r.plans {
		if p.Status == models.PlanStatusActive && !p.NextExecutionAt.After(now) {
			out = append(out, *p)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *stubRepo) RecordExecution(ctx context.Context, plan *models.Plan, rec *models.ExecutionRecord, evt *models.PlanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *plan
	r.plans[plan.ID] = &cp
	if rec != nil {
		r.records = append(r.records, *rec)
	}
	if evt != nil {
		r.events = append(r.events, *evt)
	}
	return nil
}

func (r *stubRepo) ListExecutionsByPlanID(ctx context.Context, planID uint64, limit int) ([]models.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExecutionRecord
	for _, rec := range r.records {
		if rec.PlanID == planID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *stubRepo) InsertEvent(ctx context.Context, item *models.PlanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *item)
	return nil
}

func (r *stubRepo) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.PlanEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.PlanEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

func (r *stubRepo) DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}
