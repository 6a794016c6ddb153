package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Vault event types.
const (
	EventDeposit             = "DEPOSIT"
	EventWithdraw            = "WITHDRAW"
	EventTransfer            = "TRANSFER"
	EventWindowReactivated   = "WINDOW_REACTIVATED"
	EventCollateralCommitted = "COLLATERAL_COMMITTED"
	EventCollateralBurned    = "COLLATERAL_BURNED"
	EventSettled             = "SETTLED"
	EventOrderSold           = "ORDER_SOLD"
	EventFeesSwept           = "FEES_SWEPT"
	EventFeesUpdated         = "FEES_UPDATED"
	EventCapUpdated          = "CAP_UPDATED"
	EventPaused              = "PAUSED"
	EventUnpaused            = "UNPAUSED"
	EventClosed              = "CLOSED"
)

// VaultEvent is the append-only audit trail for a vault. One row per
// completed state-mutating operation.
type VaultEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	VaultID   uuid.UUID      `gorm:"column:vault_id;type:uuid;not null;index" json:"vault_id"`
	EventType string         `gorm:"column:event_type;not null" json:"event_type"`
	ActorID   *string        `gorm:"column:actor_id" json:"actor_id"`
	EventData datatypes.JSON `gorm:"column:event_data" json:"event_data"`

	CreatedAt time.Time `json:"createdAt"`
}

func (VaultEvent) TableName() string {
	return "VaultEvents"
}

func (e *VaultEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
