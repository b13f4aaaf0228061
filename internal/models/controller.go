package models

import (
	"time"
)

// Controller is the per-owner registry row. It carries the capability
// references needed to move the owner's funds: a native vault withdrawal
// capability and the EVM-side address the bridge account pulls from.
// Capabilities are optional until configured; execution fails gracefully for
// plans whose asset pair needs a capability that is absent.
type Controller struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerAddress string `gorm:"type:varchar(100);not null;uniqueIndex" json:"owner_address"`

	VaultRef   *string `gorm:"type:varchar(200)" json:"vault_ref,omitempty"`
	EVMAddress *string `gorm:"type:varchar(64)" json:"evm_address,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Controller) TableName() string {
	return "controllers"
}

func (c *Controller) HasVaultCapability() bool {
	return c != nil && c.VaultRef != nil && *c.VaultRef != ""
}

func (c *Controller) HasEVMCapability() bool {
	return c != nil && c.EVMAddress != nil && *c.EVMAddress != ""
}

// ControllerStatus is the read-only projection exposed to external callers.
type ControllerStatus struct {
	Exists          bool  `json:"exists"`
	FullyConfigured bool  `json:"fully_configured"`
	PlanCount       int64 `json:"plan_count"`
}
