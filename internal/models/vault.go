package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vault is one independent vault instance. The factory endpoint constructs
// rows of this shape; every instance carries its own isolated ledger state.
//
// All amount columns are 256-bit unsigned integers stored as decimal strings;
// internal/vaultmath owns parsing and arithmetic.
type Vault struct {
	VaultID   uuid.UUID `gorm:"column:vault_id;type:uuid;primaryKey" json:"vault_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Symbol    string    `gorm:"column:symbol;not null" json:"symbol"`
	ManagerID uuid.UUID `gorm:"column:manager_id;type:uuid;not null;index" json:"manager_id"`

	AssetDenom    string `gorm:"column:asset_denom;not null" json:"asset_denom"`
	AssetDecimals uint64 `gorm:"column:asset_decimals;not null" json:"asset_decimals"`

	// Deployment-level fee rates in hundredths of a percent, each capped at 5000.
	DepositFeeBps     uint64 `gorm:"column:deposit_fee_bps;not null;default:0" json:"deposit_fee_bps"`
	WithdrawalFeeBps  uint64 `gorm:"column:withdrawal_fee_bps;not null;default:0" json:"withdrawal_fee_bps"`
	PerformanceFeeBps uint64 `gorm:"column:performance_fee_bps;not null;default:0" json:"performance_fee_bps"`

	MaximumAssets string `gorm:"column:maximum_assets;not null" json:"maximum_assets"`
	ReserveBps    uint64 `gorm:"column:reserve_bps;not null;default:0" json:"reserve_bps"`

	WindowLengthSecs int64 `gorm:"column:window_length_secs;not null" json:"window_length_secs"`
	// Unix expiry of the withdrawal window; zero before the first deposit.
	WindowExpiry int64 `gorm:"column:window_expiry;not null;default:0" json:"window_expiry"`

	TotalSupply   string `gorm:"column:total_supply;not null;default:0" json:"total_supply"`
	AssetBalance  string `gorm:"column:asset_balance;not null;default:0" json:"asset_balance"`
	ObligatedFees string `gorm:"column:obligated_fees;not null;default:0" json:"obligated_fees"`

	// Frozen at the first collateral commit of a cycle, cleared on unwind/settle.
	CurrentReserves string `gorm:"column:current_reserves;not null;default:0" json:"current_reserves"`

	CollateralAmount  string  `gorm:"column:collateral_amount;not null;default:0" json:"collateral_amount"`
	InstrumentBalance string  `gorm:"column:instrument_balance;not null;default:0" json:"instrument_balance"`
	ActiveInstrument  *string `gorm:"column:active_instrument" json:"active_instrument"`
	InstrumentIsPut   bool    `gorm:"column:instrument_is_put;not null;default:false" json:"instrument_is_put"`

	Paused bool `gorm:"column:paused;not null;default:false" json:"paused"`
	Closed bool `gorm:"column:closed;not null;default:false" json:"closed"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Vault) TableName() string {
	return "Vaults"
}

func (v *Vault) BeforeCreate(tx *gorm.DB) error {
	if v.VaultID == uuid.Nil {
		v.VaultID = uuid.New()
	}
	return nil
}
