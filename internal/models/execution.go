package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ExecutionOutcome is the result of one firing of a plan. It is fed into the
// plan state machine and journaled as an ExecutionRecord.
type ExecutionOutcome struct {
	AttemptID string          `json:"attempt_id"`
	AmountIn  decimal.Decimal `json:"amount_in"`
	MinOutput decimal.Decimal `json:"min_output"`
	AmountOut decimal.Decimal `json:"amount_out"`
	Success   bool            `json:"success"`
	Reason    string          `json:"reason,omitempty"`
}

// ExecutionRecord journals one execution attempt per plan firing.
type ExecutionRecord struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	PlanID    uint64 `gorm:"not null;index" json:"plan_id"`
	AttemptID string `gorm:"type:varchar(40);not null;uniqueIndex" json:"attempt_id"`

	AmountIn  decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"amount_in"`
	MinOutput decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"min_output"`
	AmountOut decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"amount_out"`

	Success bool           `gorm:"not null" json:"success"`
	Reason  string         `gorm:"type:varchar(40)" json:"reason,omitempty"`
	Detail  datatypes.JSON `gorm:"type:jsonb" json:"detail,omitempty"`

	ExecutedAt time.Time `gorm:"type:timestamptz;not null;index" json:"executed_at"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (ExecutionRecord) TableName() string {
	return "execution_records"
}
