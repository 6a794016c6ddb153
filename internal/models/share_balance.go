package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShareBalance is one account's share position in one vault. Rows are created
// on first credit and zeroed, never deleted, when fully redeemed. Per vault,
// the sum of balances always equals Vault.TotalSupply.
type ShareBalance struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	VaultID   uuid.UUID `gorm:"column:vault_id;type:uuid;not null;uniqueIndex:idx_vault_account" json:"vault_id"`
	AccountID string    `gorm:"column:account_id;not null;uniqueIndex:idx_vault_account" json:"account_id"`
	Balance   string    `gorm:"column:balance;not null;default:0" json:"balance"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ShareBalance) TableName() string {
	return "ShareBalances"
}

func (b *ShareBalance) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
