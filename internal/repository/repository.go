package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"autodca/internal/models"
)

type ListPlansParams struct {
	Owner  *string
	Status *string
	Limit  int
	Offset int
}

type ListEventsParams struct {
	Owner  *string
	Type   *string
	PlanID *uint64
	Limit  int
	Offset int
}

type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Controllers
	UpsertController(ctx context.Context, item *models.Controller) error
	GetControllerByOwner(ctx context.Context, owner string) (*models.Controller, error)

	// Plans
	InsertPlan(ctx context.Context, item *models.Plan) error
	GetPlanByID(ctx context.Context, id uint64) (*models.Plan, error)
	ListPlans(ctx context.Context, params ListPlansParams) ([]models.Plan, error)
	CountPlansByOwner(ctx context.Context, owner string) (int64, error)
	SavePlan(ctx context.Context, item *models.Plan) error
	DeletePlan(ctx context.Context, id uint64) error
	ListDuePlans(ctx context.Context, now time.Time, limit int) ([]models.Plan, error)

	// RecordExecution persists the plan's post-execution state, the attempt
	// journal row, and the emitted event in one transaction.
	RecordExecution(ctx context.Context, plan *models.Plan, rec *models.ExecutionRecord, evt *models.PlanEvent) error
	ListExecutionsByPlanID(ctx context.Context, planID uint64, limit int) ([]models.ExecutionRecord, error)

	// Events
	InsertEvent(ctx context.Context, item *models.PlanEvent) error
	ListEvents(ctx context.Context, params ListEventsParams) ([]models.PlanEvent, error)
	DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error)
}
