package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"autodca/internal/bridge"
	"autodca/internal/config"
	"autodca/internal/events"
	"autodca/internal/models"
	"autodca/internal/repository"
)

// PlanService owns plan and controller lifecycle: creation, pause/resume,
// cancellation, removal, and capability configuration. Execution-time
// mutation belongs to the scheduler, not here.
type PlanService struct {
	Repo   repository.Repository
	Assets config.AssetRegistry
	Events *events.Hub
	Logger *zap.Logger
}

func (s *PlanService) CreatePlan(ctx context.Context, in models.NewPlanInput) (*models.Plan, error) {
	if _, ok := s.Assets[in.SourceAsset]; !ok {
		return nil, fmt.Errorf("%w: unknown source asset %q", models.ErrInvalidConfiguration, in.SourceAsset)
	}
	if _, ok := s.Assets[in.TargetAsset]; !ok {
		return nil, fmt.Errorf("%w: unknown target asset %q", models.ErrInvalidConfiguration, in.TargetAsset)
	}
	plan, err := models.NewPlan(in, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	// A controller row is created lazily with the first plan; capabilities
	// are configured separately.
	ctrl, err := s.Repo.GetControllerByOwner(ctx, plan.OwnerAddress)
	if err != nil {
		return nil, err
	}
	if ctrl == nil {
		if err := s.Repo.UpsertController(ctx, &models.Controller{OwnerAddress: plan.OwnerAddress}); err != nil {
			return nil, err
		}
	}

	if err := s.Repo.InsertPlan(ctx, plan); err != nil {
		return nil, err
	}
	s.emit(ctx, models.NewPlanEvent(models.EventPlanCreated, plan.OwnerAddress, &plan.ID, map[string]any{
		"source_asset":        plan.SourceAsset,
		"target_asset":        plan.TargetAsset,
		"amount_per_interval": plan.AmountPerInterval.String(),
		"interval_seconds":    plan.IntervalSeconds,
	}))
	if s.Logger != nil {
		s.Logger.Info("plan created",
			zap.Uint64("plan_id", plan.ID),
			zap.String("owner", plan.OwnerAddress),
			zap.String("pair", plan.SourceAsset+"/"+plan.TargetAsset),
		)
	}
	return plan, nil
}

func (s *PlanService) PausePlan(ctx context.Context, owner string, id uint64) error {
	plan, err := s.ownedPlan(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := plan.Pause(); err != nil {
		return err
	}
	if err := s.Repo.SavePlan(ctx, plan); err != nil {
		return err
	}
	s.emit(ctx, models.NewPlanEvent(models.EventPlanPaused, plan.OwnerAddress, &plan.ID, nil))
	return nil
}

func (s *PlanService) ResumePlan(ctx context.Context, owner string, id uint64) error {
	plan, err := s.ownedPlan(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := plan.Resume(time.Now().UTC()); err != nil {
		return err
	}
	if err := s.Repo.SavePlan(ctx, plan); err != nil {
		return err
	}
	s.emit(ctx, models.NewPlanEvent(models.EventPlanResumed, plan.OwnerAddress, &plan.ID, nil))
	return nil
}

// CancelPlan is honored between triggers: an execution already in flight
// completes or fails first, then the next eligibility check sees the
// terminal status.
func (s *PlanService) CancelPlan(ctx context.Context, owner string, id uint64) error {
	plan, err := s.ownedPlan(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := plan.Cancel(); err != nil {
		return err
	}
	if err := s.Repo.SavePlan(ctx, plan); err != nil {
		return err
	}
	s.emit(ctx, models.NewPlanEvent(models.EventPlanCancelled, plan.OwnerAddress, &plan.ID, nil))
	return nil
}

// RemovePlan deletes a plan's row. Only terminal plans may be removed;
// removal is always explicit, never implicit.
func (s *PlanService) RemovePlan(ctx context.Context, owner string, id uint64) error {
	plan, err := s.ownedPlan(ctx, owner, id)
	if err != nil {
		return err
	}
	if !plan.IsTerminal() {
		return fmt.Errorf("%w: plan %d is %s", models.ErrPlanNotRemovable, id, plan.Status)
	}
	return s.Repo.DeletePlan(ctx, id)
}

func (s *PlanService) GetPlan(ctx context.Context, owner string, id uint64) (*models.Plan, error) {
	return s.ownedPlan(ctx, owner, id)
}

func (s *PlanService) ListPlans(ctx context.Context, owner string, status *string, limit, offset int) ([]models.Plan, error) {
	var ownerPtr *string
	if strings.TrimSpace(owner) != "" {
		ownerPtr = &owner
	}
	return s.Repo.ListPlans(ctx, repository.ListPlansParams{
		Owner:  ownerPtr,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
}

// ConfigureController stores the owner's capability references: the native
// vault withdrawal capability and the EVM address the bridge pulls from.
func (s *PlanService) ConfigureController(ctx context.Context, owner string, vaultRef, evmAddress *string) (*models.Controller, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, fmt.Errorf("%w: owner address required", models.ErrInvalidConfiguration)
	}
	if evmAddress != nil && *evmAddress != "" {
		if _, err := bridge.ParseAddress(*evmAddress); err != nil {
			return nil, fmt.Errorf("%w: invalid EVM address %q", models.ErrInvalidConfiguration, *evmAddress)
		}
	}
	ctrl, err := s.Repo.GetControllerByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if ctrl == nil {
		ctrl = &models.Controller{OwnerAddress: owner}
	}
	if vaultRef != nil {
		ctrl.VaultRef = vaultRef
	}
	if evmAddress != nil {
		ctrl.EVMAddress = evmAddress
	}
	if err := s.Repo.UpsertController(ctx, ctrl); err != nil {
		return nil, err
	}
	return ctrl, nil
}

// ControllerStatus reports existence, configuration completeness, and plan
// count for an owner. A controller is fully configured when every capability
// required by at least one held plan's asset pair is present.
func (s *PlanService) ControllerStatus(ctx context.Context, owner string) (models.ControllerStatus, error) {
	ctrl, err := s.Repo.GetControllerByOwner(ctx, owner)
	if err != nil {
		return models.ControllerStatus{}, err
	}
	if ctrl == nil {
		return models.ControllerStatus{}, nil
	}
	plans, err := s.Repo.ListPlans(ctx, repository.ListPlansParams{Owner: &owner})
	if err != nil {
		return models.ControllerStatus{}, err
	}
	count, err := s.Repo.CountPlansByOwner(ctx, owner)
	if err != nil {
		return models.ControllerStatus{}, err
	}

	needsVault, needsEVM := false, false
	for _, plan := range plans {
		for _, symbol := range []string{plan.SourceAsset, plan.TargetAsset} {
			asset, ok := s.Assets[symbol]
			if !ok {
				continue
			}
			switch asset.Environment {
			case config.EnvNative:
				needsVault = true
			case config.EnvEVM:
				needsEVM = true
			}
		}
	}
	configured := true
	if needsVault && !ctrl.HasVaultCapability() {
		configured = false
	}
	if needsEVM && !ctrl.HasEVMCapability() {
		configured = false
	}

	return models.ControllerStatus{
		Exists:          true,
		FullyConfigured: configured,
		PlanCount:       count,
	}, nil
}

// ownedPlan loads a plan and checks ownership. An owner mismatch is reported
// as not-found so plan ids cannot be probed across owners.
func (s *PlanService) ownedPlan(ctx context.Context, owner string, id uint64) (*models.Plan, error) {
	plan, err := s.Repo.GetPlanByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil || !strings.EqualFold(plan.OwnerAddress, owner) {
		return nil, fmt.Errorf("%w: plan %d", models.ErrPlanNotFound, id)
	}
	return plan, nil
}

func (s *PlanService) emit(ctx context.Context, evt *models.PlanEvent) {
	if evt == nil {
		return
	}
	if err := s.Repo.InsertEvent(ctx, evt); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("failed to persist event", zap.String("type", evt.Type), zap.Error(err))
		}
		return
	}
	if s.Events != nil {
		s.Events.Publish(*evt)
	}
}
