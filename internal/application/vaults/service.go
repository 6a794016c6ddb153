package vaults

import (
	"context"
	"encoding/json"
	"time"

	"harbor-backend/internal/constants"
	"harbor-backend/internal/gateway"
	"harbor-backend/internal/models"
	"harbor-backend/internal/vault"
	"harbor-backend/internal/vaultmath"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service is the vault ledger engine. Every mutating operation runs under the
// per-vault Redis lock and inside one gorm transaction: any error anywhere,
// including a gateway failure, rolls back every local mutation.
type Service struct {
	DB          *gorm.DB
	Rdb         *redis.Client
	FeeRegistry gateway.FeeRegistry
	Custody     gateway.AssetCustody
	Controller  gateway.PositionController
	AddressBook gateway.AddressBook
	Swap        gateway.SwapGateway

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time
}

// Actor identifies the session user performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (s *Service) now() int64 {
	if s.Now != nil {
		return s.Now().Unix()
	}
	return time.Now().Unix()
}

// custodyAccount is the vault's account at the asset custody service.
func custodyAccount(vaultID uuid.UUID) string {
	return "vault:" + vaultID.String()
}

// managerAccount receives swept fees.
func managerAccount(managerID uuid.UUID) string {
	return "manager:" + managerID.String()
}

func (s *Service) requireManager(v *models.Vault, actor Actor) error {
	if actor.Role == constants.Superadmin {
		return nil
	}
	if v.ManagerID != actor.UserID {
		return vault.ErrUnauthorized
	}
	return nil
}

// guardMutable rejects mutations on closed or paused vaults. Unpause and
// settle bypass the paused gate at their call sites.
func guardMutable(v *models.Vault) error {
	if v.Closed {
		return vault.ErrPermanentlyClosed
	}
	if v.Paused {
		return vault.ErrPaused
	}
	return nil
}

func loadVault(tx *gorm.DB, vaultID uuid.UUID) (*models.Vault, error) {
	var v models.Vault
	if err := tx.Where("vault_id = ?", vaultID).First(&v).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, vault.ErrVaultNotFound
		}
		return nil, err
	}
	return &v, nil
}

// ledgerState holds the parsed amount columns of a vault row.
type ledgerState struct {
	TotalSupply       *uint256.Int
	AssetBalance      *uint256.Int
	ObligatedFees     *uint256.Int
	CurrentReserves   *uint256.Int
	CollateralAmount  *uint256.Int
	InstrumentBalance *uint256.Int
	MaximumAssets     *uint256.Int
}

func parseState(v *models.Vault) (*ledgerState, error) {
	st := &ledgerState{}
	var err error
	if st.TotalSupply, err = vaultmath.ParseAmount(v.TotalSupply); err != nil {
		return nil, err
	}
	if st.AssetBalance, err = vaultmath.ParseAmount(v.AssetBalance); err != nil {
		return nil, err
	}
	if st.ObligatedFees, err = vaultmath.ParseAmount(v.ObligatedFees); err != nil {
		return nil, err
	}
	if st.CurrentReserves, err = vaultmath.ParseAmount(v.CurrentReserves); err != nil {
		return nil, err
	}
	if st.CollateralAmount, err = vaultmath.ParseAmount(v.CollateralAmount); err != nil {
		return nil, err
	}
	if st.InstrumentBalance, err = vaultmath.ParseAmount(v.InstrumentBalance); err != nil {
		return nil, err
	}
	if st.MaximumAssets, err = vaultmath.ParseAmount(v.MaximumAssets); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *ledgerState) store(v *models.Vault) {
	v.TotalSupply = vaultmath.FormatAmount(st.TotalSupply)
	v.AssetBalance = vaultmath.FormatAmount(st.AssetBalance)
	v.ObligatedFees = vaultmath.FormatAmount(st.ObligatedFees)
	v.CurrentReserves = vaultmath.FormatAmount(st.CurrentReserves)
	v.CollateralAmount = vaultmath.FormatAmount(st.CollateralAmount)
	v.InstrumentBalance = vaultmath.FormatAmount(st.InstrumentBalance)
}

// poolValue prices shares against everything the vault owns: held balance
// plus deployed collateral, net of the obligated-fee liability.
func (st *ledgerState) poolValue() (*uint256.Int, error) {
	total, err := vaultmath.Add(st.AssetBalance, st.CollateralAmount)
	if err != nil {
		return nil, err
	}
	return vaultmath.Sub(total, st.ObligatedFees)
}

// totalAssets is held balance plus deployed collateral; the deposit cap binds
// on this.
func (st *ledgerState) totalAssets() (*uint256.Int, error) {
	return vaultmath.Add(st.AssetBalance, st.CollateralAmount)
}

// protocolFees fetches the administrator schedule and clamps each rate at the
// 50% cap so a misconfigured registry can never take more than half.
func (s *Service) protocolFees(ctx context.Context) (gateway.ProtocolFees, error) {
	fees, err := s.FeeRegistry.ProtocolFees(ctx)
	if err != nil {
		return gateway.ProtocolFees{}, err
	}
	if fees.DepositFeeBps > vaultmath.MaxFeeBps {
		fees.DepositFeeBps = vaultmath.MaxFeeBps
	}
	if fees.WithdrawalFeeBps > vaultmath.MaxFeeBps {
		fees.WithdrawalFeeBps = vaultmath.MaxFeeBps
	}
	if fees.PerformanceFeeBps > vaultmath.MaxFeeBps {
		fees.PerformanceFeeBps = vaultmath.MaxFeeBps
	}
	return fees, nil
}

func recordEvent(tx *gorm.DB, vaultID uuid.UUID, eventType string, actor Actor, data map[string]interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	actorID := actor.UserID.String()
	return tx.Create(&models.VaultEvent{
		VaultID:   vaultID,
		EventType: eventType,
		ActorID:   &actorID,
		EventData: datatypes.JSON(b),
	}).Error
}

// CreateVaultInput is the factory request. Each call constructs an
// independent vault instance with isolated state.
type CreateVaultInput struct {
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	AssetDenom        string `json:"asset_denom"`
	AssetDecimals     uint64 `json:"asset_decimals"`
	DepositFeeBps     uint64 `json:"deposit_fee_bps"`
	WithdrawalFeeBps  uint64 `json:"withdrawal_fee_bps"`
	PerformanceFeeBps uint64 `json:"performance_fee_bps"`
	MaximumAssets     string `json:"maximum_assets"`
	ReserveBps        uint64 `json:"reserve_bps"`
	WindowLengthSecs  int64  `json:"window_length_secs"`
}

// CreateVault validates the instance parameters, persists the row and grants
// the margin pool its allowance for later collateral pulls.
func (s *Service) CreateVault(ctx context.Context, actor Actor, in CreateVaultInput) (*models.Vault, error) {
	if in.Name == "" || in.Symbol == "" || in.AssetDenom == "" {
		return nil, vault.ErrInvalidArgument
	}
	if in.AssetDecimals > vaultmath.MaxAssetDecimals {
		return nil, vault.ErrInvalidArgument
	}
	if !vaultmath.ValidFeeRate(in.DepositFeeBps) || !vaultmath.ValidFeeRate(in.WithdrawalFeeBps) || !vaultmath.ValidFeeRate(in.PerformanceFeeBps) {
		return nil, vault.ErrFeeOutOfRange
	}
	if in.ReserveBps > vaultmath.MaxReserveBps {
		return nil, vault.ErrInvalidArgument
	}
	if in.WindowLengthSecs <= 0 {
		return nil, vault.ErrInvalidArgument
	}
	maxAssets, err := vaultmath.ParsePositive(in.MaximumAssets)
	if err != nil {
		return nil, vault.ErrInvalidArgument
	}

	v := &models.Vault{
		Name:              in.Name,
		Symbol:            in.Symbol,
		ManagerID:         actor.UserID,
		AssetDenom:        in.AssetDenom,
		AssetDecimals:     in.AssetDecimals,
		DepositFeeBps:     in.DepositFeeBps,
		WithdrawalFeeBps:  in.WithdrawalFeeBps,
		PerformanceFeeBps: in.PerformanceFeeBps,
		MaximumAssets:     vaultmath.FormatAmount(maxAssets),
		ReserveBps:        in.ReserveBps,
		WindowLengthSecs:  in.WindowLengthSecs,
		TotalSupply:       "0",
		AssetBalance:      "0",
		ObligatedFees:     "0",
		CurrentReserves:   "0",
		CollateralAmount:  "0",
		InstrumentBalance: "0",
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(v).Error; err != nil {
			return err
		}
		pool, err := s.AddressBook.MarginPool(ctx)
		if err != nil {
			return err
		}
		// Unlimited allowance pattern: approve the configured cap.
		return s.Custody.Approve(ctx, v.AssetDenom, custodyAccount(v.VaultID), pool, maxAssets)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetVault returns the vault row plus the derived window state.
func (s *Service) GetVault(ctx context.Context, vaultID uuid.UUID) (*models.Vault, bool, error) {
	v, err := loadVault(s.DB.WithContext(ctx), vaultID)
	if err != nil {
		return nil, false, err
	}
	return v, vault.WindowOpen(v.WindowExpiry, s.now()), nil
}

// ListVaults returns the vaults managed by the given manager.
func (s *Service) ListVaults(ctx context.Context, managerID uuid.UUID) ([]models.Vault, error) {
	var out []models.Vault
	if err := s.DB.WithContext(ctx).Where("manager_id = ?", managerID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetBalance returns one account's share balance; absent rows read as zero.
func (s *Service) GetBalance(ctx context.Context, vaultID uuid.UUID, accountID string) (string, error) {
	if accountID == "" {
		return "", vault.ErrZeroAddress
	}
	if _, err := loadVault(s.DB.WithContext(ctx), vaultID); err != nil {
		return "", err
	}
	var b models.ShareBalance
	err := s.DB.WithContext(ctx).Where("vault_id = ? AND account_id = ?", vaultID, accountID).First(&b).Error
	if err == gorm.ErrRecordNotFound {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return b.Balance, nil
}
