package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"autodca/internal/slippage"
)

const (
	PlanStatusActive    = "active"
	PlanStatusPaused    = "paused"
	PlanStatusCompleted = "completed"
	PlanStatusCancelled = "cancelled"
)

const OutcomeSuccess = "success"

// Plan is one recurring-purchase configuration plus its accounting and status.
// Configuration fields are immutable after creation; accounting is mutated
// only through the methods below.
type Plan struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerAddress string `gorm:"type:varchar(100);not null;index" json:"owner_address"`

	SourceAsset       string          `gorm:"type:varchar(20);not null" json:"source_asset"`
	TargetAsset       string          `gorm:"type:varchar(20);not null" json:"target_asset"`
	AmountPerInterval decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"amount_per_interval"`
	IntervalSeconds   int64           `gorm:"not null" json:"interval_seconds"`
	MaxSlippageBps    int             `gorm:"not null" json:"max_slippage_bps"`
	MaxExecutions     *int            `json:"max_executions,omitempty"`
	FirstExecutionAt  time.Time       `gorm:"type:timestamptz;not null" json:"first_execution_at"`

	Status              string          `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	ExecutionsCompleted int             `gorm:"not null;default:0" json:"executions_completed"`
	TotalSpent          decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_spent"`
	TotalReceived       decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_received"`
	LastExecutedAt      *time.Time      `gorm:"type:timestamptz" json:"last_executed_at,omitempty"`
	LastOutcome         string          `gorm:"type:varchar(40)" json:"last_outcome,omitempty"`
	NextExecutionAt     time.Time       `gorm:"type:timestamptz;not null;index" json:"next_execution_at"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}

// NewPlanInput carries the user-supplied configuration for plan creation.
type NewPlanInput struct {
	OwnerAddress      string
	SourceAsset       string
	TargetAsset       string
	AmountPerInterval decimal.Decimal
	IntervalSeconds   int64
	MaxSlippageBps    int
	MaxExecutions     *int
	FirstExecutionAt  time.Time
}

// NewPlan validates the input and produces an active plan with zero
// accounting and next execution at the first eligible time.
func NewPlan(in NewPlanInput, now time.Time) (*Plan, error) {
	owner := strings.TrimSpace(in.OwnerAddress)
	if owner == "" {
		return nil, fmt.Errorf("%w: owner address required", ErrInvalidConfiguration)
	}
	if in.SourceAsset == "" || in.TargetAsset == "" {
		return nil, fmt.Errorf("%w: source and target assets required", ErrInvalidConfiguration)
	}
	if in.SourceAsset == in.TargetAsset {
		return nil, fmt.Errorf("%w: source and target assets must differ", ErrInvalidConfiguration)
	}
	if in.AmountPerInterval.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount per interval must be positive", ErrInvalidConfiguration)
	}
	if in.IntervalSeconds <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfiguration)
	}
	if !slippage.ValidBps(in.MaxSlippageBps) {
		return nil, fmt.Errorf("%w: max slippage must be within [0,10000] bps", ErrInvalidConfiguration)
	}
	if in.MaxExecutions != nil && *in.MaxExecutions <= 0 {
		return nil, fmt.Errorf("%w: max executions must be positive when set", ErrInvalidConfiguration)
	}
	if !in.FirstExecutionAt.After(now) {
		return nil, fmt.Errorf("%w: first execution time must be in the future", ErrInvalidConfiguration)
	}

	return &Plan{
		OwnerAddress:      owner,
		SourceAsset:       in.SourceAsset,
		TargetAsset:       in.TargetAsset,
		AmountPerInterval: in.AmountPerInterval,
		IntervalSeconds:   in.IntervalSeconds,
		MaxSlippageBps:    in.MaxSlippageBps,
		MaxExecutions:     in.MaxExecutions,
		FirstExecutionAt:  in.FirstExecutionAt.UTC(),
		Status:            PlanStatusActive,
		TotalSpent:        decimal.Zero,
		TotalReceived:     decimal.Zero,
		NextExecutionAt:   in.FirstExecutionAt.UTC(),
	}, nil
}

func (p *Plan) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

func (p *Plan) IsTerminal() bool {
	return p.Status == PlanStatusCompleted || p.Status == PlanStatusCancelled
}

// IsEligibleToExecute reports whether a trigger at now should fire.
func (p *Plan) IsEligibleToExecute(now time.Time) bool {
	if p.Status != PlanStatusActive {
		return false
	}
	if now.Before(p.NextExecutionAt) {
		return false
	}
	if p.MaxExecutions != nil && p.ExecutionsCompleted >= *p.MaxExecutions {
		return false
	}
	return true
}

func (p *Plan) Pause() error {
	if p.Status != PlanStatusActive {
		return fmt.Errorf("%w: cannot pause plan in status %s", ErrInvalidStateTransition, p.Status)
	}
	p.Status = PlanStatusPaused
	return nil
}

// Resume reactivates a paused plan. The next execution is pushed to at least
// now so a long pause does not cause back-to-back catch-up firings.
func (p *Plan) Resume(now time.Time) error {
	if p.Status != PlanStatusPaused {
		return fmt.Errorf("%w: cannot resume plan in status %s", ErrInvalidStateTransition, p.Status)
	}
	p.Status = PlanStatusActive
	if p.NextExecutionAt.Before(now) {
		p.NextExecutionAt = now.UTC()
	}
	return nil
}

func (p *Plan) Cancel() error {
	if p.IsTerminal() {
		return fmt.Errorf("%w: cannot cancel plan in status %s", ErrInvalidStateTransition, p.Status)
	}
	p.Status = PlanStatusCancelled
	return nil
}

// RecordSuccess applies a successful execution: accounting accumulates, the
// schedule advances by one interval, and hitting the execution cap completes
// the plan in the same operation.
func (p *Plan) RecordSuccess(now time.Time, amountIn, amountOut decimal.Decimal) error {
	if p.Status != PlanStatusActive {
		return fmt.Errorf("%w: cannot record execution in status %s", ErrInvalidStateTransition, p.Status)
	}
	now = now.UTC()
	p.ExecutionsCompleted++
	p.TotalSpent = p.TotalSpent.Add(amountIn)
	p.TotalReceived = p.TotalReceived.Add(amountOut)
	p.LastExecutedAt = &now
	p.LastOutcome = OutcomeSuccess
	p.NextExecutionAt = now.Add(p.Interval())
	if p.MaxExecutions != nil && p.ExecutionsCompleted >= *p.MaxExecutions {
		p.Status = PlanStatusCompleted
	}
	return nil
}

// RecordFailure records a failed attempt without touching accounting. The
// next attempt is permitted at the next regularly scheduled trigger, not
// immediately.
func (p *Plan) RecordFailure(now time.Time, reason string) error {
	if p.Status != PlanStatusActive {
		return fmt.Errorf("%w: cannot record execution in status %s", ErrInvalidStateTransition, p.Status)
	}
	now = now.UTC()
	p.LastExecutedAt = &now
	p.LastOutcome = reason
	next := p.NextExecutionAt
	for !next.After(now) {
		next = next.Add(p.Interval())
	}
	p.NextExecutionAt = next
	return nil
}
