package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EventPlanCreated           = "plan_created"
	EventPlanExecuted          = "plan_executed"
	EventExecutionFailed       = "execution_failed"
	EventInsufficientAllowance = "insufficient_allowance"
	EventPlanCompleted         = "plan_completed"
	EventPlanCancelled         = "plan_cancelled"
	EventPlanPaused            = "plan_paused"
	EventPlanResumed           = "plan_resumed"
	// Operational alert: bridge gas exhaustion affects all bridged plans.
	EventInsufficientGas = "insufficient_gas"
)

// PlanEvent is an emitted event for external observers, persisted for the
// query API and broadcast live over the websocket stream.
type PlanEvent struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID      string         `gorm:"type:varchar(40);not null;uniqueIndex" json:"event_id"`
	Type         string         `gorm:"type:varchar(40);not null;index" json:"type"`
	OwnerAddress string         `gorm:"type:varchar(100);index" json:"owner_address,omitempty"`
	PlanID       *uint64        `gorm:"index" json:"plan_id,omitempty"`
	Payload      datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (PlanEvent) TableName() string {
	return "plan_events"
}

// NewPlanEvent builds an event row with a fresh event id and a JSON payload.
func NewPlanEvent(eventType, owner string, planID *uint64, payload map[string]any) *PlanEvent {
	var raw datatypes.JSON
	if len(payload) > 0 {
		if data, err := json.Marshal(payload); err == nil {
			raw = datatypes.JSON(data)
		}
	}
	return &PlanEvent{
		EventID:      uuid.NewString(),
		Type:         eventType,
		OwnerAddress: owner,
		PlanID:       planID,
		Payload:      raw,
	}
}
