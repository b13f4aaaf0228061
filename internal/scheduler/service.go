// Package scheduler drives plan firing: it scans for due plans, re-validates
// eligibility against fresh state, runs the swap pipeline, and feeds the
// outcome back into the plan state machine. Terminal plans are simply never
// selected again, so no dangling triggers survive completion or cancellation.
package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"autodca/internal/config"
	"autodca/internal/events"
	"autodca/internal/models"
	"autodca/internal/repository"
)

// Executor runs one swap for a plan; every failure mode is folded into the
// outcome.
type Executor interface {
	Execute(ctx context.Context, ctrl *models.Controller, plan *models.Plan) models.ExecutionOutcome
}

type Service struct {
	Repo   repository.Repository
	Exec   Executor
	Events *events.Hub
	Logger *zap.Logger
	Config config.SchedulerConfig

	mu       sync.Mutex
	inFlight map[uint64]struct{}
	sem      chan struct{}
	wg       sync.WaitGroup
}

func (s *Service) Run(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Exec == nil {
		return nil
	}
	interval := s.Config.ScanInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	for {
		if err := s.scanOnce(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("scheduler scan failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) scanOnce(ctx context.Context) error {
	limit := s.Config.BatchLimit
	if limit <= 0 {
		limit = 100
	}
	due, err := s.Repo.ListDuePlans(ctx, time.Now().UTC(), limit)
	if err != nil {
		return err
	}
	for _, plan := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !s.tryAcquire(plan.ID) {
			continue
		}
		select {
		case s.semaphore() <- struct{}{}:
		case <-ctx.Done():
			s.release(plan.ID)
			return ctx.Err()
		}
		s.wg.Add(1)
		go func(id uint64) {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			defer s.release(id)
			s.executePlan(ctx, id)
		}(plan.ID)
	}
	return nil
}

// tryAcquire enforces single-flight per plan: no two concurrent executions
// of the same plan, while distinct plans proceed in parallel.
func (s *Service) tryAcquire(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == nil {
		s.inFlight = make(map[uint64]struct{})
	}
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Service) release(id uint64) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

func (s *Service) semaphore() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sem == nil {
		n := s.Config.MaxConcurrent
		if n <= 0 {
			n = 8
		}
		s.sem = make(chan struct{}, n)
	}
	return s.sem
}

// executePlan handles one trigger. Any failure is converted into a recorded
// attempt; nothing propagates out of this boundary.
func (s *Service) executePlan(ctx context.Context, planID uint64) {
	defer func() {
		if r := recover(); r != nil && s.Logger != nil {
			s.Logger.Error("panic during plan execution",
				zap.Uint64("plan_id", planID), zap.Any("panic", r))
		}
	}()

	// Reload fresh state: the schedule may be stale after a manual pause or
	// cancel between scan and execution.
	plan, err := s.Repo.GetPlanByID(ctx, planID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("failed to load due plan", zap.Uint64("plan_id", planID), zap.Error(err))
		}
		return
	}
	if plan == nil {
		return
	}
	now := time.Now().UTC()
	if !plan.IsEligibleToExecute(now) {
		if s.Logger != nil {
			s.Logger.Info("skipping ineligible plan",
				zap.Uint64("plan_id", plan.ID), zap.String("status", plan.Status))
		}
		return
	}

	ctrl, err := s.Repo.GetControllerByOwner(ctx, plan.OwnerAddress)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("failed to load controller", zap.Uint64("plan_id", plan.ID), zap.Error(err))
		}
		return
	}

	outcome := s.Exec.Execute(ctx, ctrl, plan)
	now = time.Now().UTC()

	var applyErr error
	if outcome.Success {
		applyErr = plan.RecordSuccess(now, outcome.AmountIn, outcome.AmountOut)
	} else {
		applyErr = plan.RecordFailure(now, outcome.Reason)
	}
	if applyErr != nil {
		if s.Logger != nil {
			s.Logger.Warn("failed to apply execution outcome",
				zap.Uint64("plan_id", plan.ID), zap.Error(applyErr))
		}
		return
	}

	rec := &models.ExecutionRecord{
		PlanID:     plan.ID,
		AttemptID:  outcome.AttemptID,
		AmountIn:   outcome.AmountIn,
		MinOutput:  outcome.MinOutput,
		AmountOut:  outcome.AmountOut,
		Success:    outcome.Success,
		Reason:     outcome.Reason,
		ExecutedAt: now,
	}
	if raw, err := json.Marshal(outcome); err == nil {
		rec.Detail = datatypes.JSON(raw)
	}

	evt := s.outcomeEvent(plan, outcome)
	if err := s.Repo.RecordExecution(ctx, plan, rec, evt); err != nil {
		if s.Logger != nil {
			s.Logger.Error("failed to record execution",
				zap.Uint64("plan_id", plan.ID), zap.Error(err))
		}
		return
	}
	if s.Events != nil && evt != nil {
		s.Events.Publish(*evt)
	}

	if plan.Status == models.PlanStatusCompleted {
		done := models.NewPlanEvent(models.EventPlanCompleted, plan.OwnerAddress, &plan.ID, map[string]any{
			"executions_completed": plan.ExecutionsCompleted,
			"total_spent":          plan.TotalSpent.String(),
			"total_received":       plan.TotalReceived.String(),
		})
		if err := s.Repo.InsertEvent(ctx, done); err == nil && s.Events != nil {
			s.Events.Publish(*done)
		}
	}

	if s.Logger != nil {
		s.Logger.Info("plan trigger processed",
			zap.Uint64("plan_id", plan.ID),
			zap.Bool("success", outcome.Success),
			zap.String("reason", outcome.Reason),
			zap.String("status", plan.Status),
			zap.Time("next_execution_at", plan.NextExecutionAt),
		)
	}
}

func (s *Service) outcomeEvent(plan *models.Plan, outcome models.ExecutionOutcome) *models.PlanEvent {
	if outcome.Success {
		return models.NewPlanEvent(models.EventPlanExecuted, plan.OwnerAddress, &plan.ID, map[string]any{
			"attempt_id": outcome.AttemptID,
			"amount_in":  outcome.AmountIn.String(),
			"amount_out": outcome.AmountOut.String(),
		})
	}
	eventType := models.EventExecutionFailed
	switch outcome.Reason {
	case models.ReasonInsufficientAllowance:
		eventType = models.EventInsufficientAllowance
	case models.ReasonInsufficientGas:
		eventType = models.EventInsufficientGas
	}
	return models.NewPlanEvent(eventType, plan.OwnerAddress, &plan.ID, map[string]any{
		"attempt_id": outcome.AttemptID,
		"reason":     outcome.Reason,
		"amount_in":  outcome.AmountIn.String(),
	})
}
