package vaults

import (
	"context"

	"harbor-backend/internal/gateway"
	"harbor-backend/internal/models"
	"harbor-backend/internal/vault"
	"harbor-backend/internal/vaultmath"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"gorm.io/gorm"
)

// CommitInput locks underlying as collateral against an external instrument.
type CommitInput struct {
	Amount     string `json:"amount"`
	Instrument string `json:"instrument"`
	IsPut      bool   `json:"is_put"`
}

// CommitResult reports the minted instrument units and the frozen reserve.
type CommitResult struct {
	CollateralAmount string `json:"collateral_amount"`
	MintedAmount     string `json:"minted_amount"`
	CurrentReserves  string `json:"current_reserves"`
}

// CommitCollateral deploys uncommitted balance behind an instrument. Only the
// manager may commit, only while the window is closed, and never past the
// reserve frozen at the first commit of the cycle.
func (s *Service) CommitCollateral(ctx context.Context, vaultID uuid.UUID, actor Actor, in CommitInput) (*CommitResult, error) {
	if in.Instrument == "" {
		return nil, vault.ErrZeroAddress
	}
	amount, err := vaultmath.ParsePositive(in.Amount)
	if err != nil {
		return nil, vault.ErrInvalidArgument
	}

	var result *CommitResult
	err = s.withOpLock(ctx, vaultID, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			v, err := loadVault(tx, vaultID)
			if err != nil {
				return err
			}
			if err := s.requireManager(v, actor); err != nil {
				return err
			}
			if err := guardMutable(v); err != nil {
				return err
			}
			if vault.WindowOpen(v.WindowExpiry, s.now()) {
				return vault.ErrWindowOpen
			}
			if v.ActiveInstrument != nil && *v.ActiveInstrument != in.Instrument {
				return vault.ErrInstrumentNotCleared
			}
			st, err := parseState(v)
			if err != nil {
				return err
			}

			uncommitted, err := vaultmath.Sub(st.AssetBalance, st.ObligatedFees)
			if err != nil {
				return err
			}
			if amount.Gt(uncommitted) {
				return vault.ErrInsufficientFunds
			}

			// First commit of the cycle freezes the reserve off the
			// pre-commit uncommitted balance.
			if st.CollateralAmount.IsZero() {
				reserves, err := vaultmath.MulDiv(uncommitted, uint256.NewInt(v.ReserveBps), uint256.NewInt(vaultmath.RateDenominator))
				if err != nil {
					return err
				}
				st.CurrentReserves = reserves
			}
			free, err := vaultmath.Sub(uncommitted, st.CurrentReserves)
			if err != nil || amount.Gt(free) {
				return vault.ErrReserveViolation
			}

			minted, err := vaultmath.Normalize(amount, v.AssetDecimals, vaultmath.InstrumentDecimals(in.IsPut))
			if err != nil {
				return err
			}
			if minted.IsZero() {
				return vault.ErrInvalidArgument
			}

			if st.AssetBalance, err = vaultmath.Sub(st.AssetBalance, amount); err != nil {
				return err
			}
			if st.CollateralAmount, err = vaultmath.Add(st.CollateralAmount, amount); err != nil {
				return err
			}
			if st.InstrumentBalance, err = vaultmath.Add(st.InstrumentBalance, minted); err != nil {
				return err
			}
			v.ActiveInstrument = &in.Instrument
			v.InstrumentIsPut = in.IsPut
			st.store(v)
			if err := tx.Save(v).Error; err != nil {
				return err
			}

			// One batched submission: open the position vault on first use,
			// deposit collateral, mint the instrument.
			pool, err := s.AddressBook.MarginPool(ctx)
			if err != nil {
				return err
			}
			owner := custodyAccount(vaultID)
			counter, err := s.Controller.AccountVaultCounter(ctx, owner)
			if err != nil {
				return err
			}
			actions := make([]gateway.Action, 0, 3)
			if counter == 0 {
				actions = append(actions, gateway.Action{Type: gateway.ActionOpenVault, Owner: owner, VaultCounter: 1})
				counter = 1
			}
			actions = append(actions,
				gateway.Action{Type: gateway.ActionDepositCollateral, Owner: owner, VaultCounter: counter, Amount: vaultmath.FormatAmount(amount)},
				gateway.Action{Type: gateway.ActionMint, Owner: owner, VaultCounter: counter, Instrument: in.Instrument, Amount: vaultmath.FormatAmount(minted)},
			)
			if _, err := s.Controller.SubmitActions(ctx, actions); err != nil {
				return err
			}
			if err := s.Custody.Transfer(ctx, v.AssetDenom, owner, pool, amount); err != nil {
				return err
			}

			result = &CommitResult{
				CollateralAmount: v.CollateralAmount,
				MintedAmount:     vaultmath.FormatAmount(minted),
				CurrentReserves:  v.CurrentReserves,
			}
			return recordEvent(tx, vaultID, models.EventCollateralCommitted, actor, map[string]interface{}{
				"amount":     in.Amount,
				"instrument": in.Instrument,
				"is_put":     in.IsPut,
				"minted":     result.MintedAmount,
				"reserves":   result.CurrentReserves,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BurnInput unwinds instrument units back into collateral.
type BurnInput struct {
	InstrumentAmount string `json:"instrument_amount"`
}

// BurnResult reports the collateral released and whether the position fully
// unwound.
type BurnResult struct {
	ReleasedCollateral string `json:"released_collateral"`
	PositionClosed     bool   `json:"position_closed"`
	WindowExpiry       int64  `json:"window_expiry"`
}

// BurnCollateral burns instrument units and withdraws the matching collateral
// slice. Burning the last unit clears the instrument, drops the reserve and
// reopens the window.
func (s *Service) BurnCollateral(ctx context.Context, vaultID uuid.UUID, actor Actor, in BurnInput) (*BurnResult, error) {
	burn, err := vaultmath.ParsePositive(in.InstrumentAmount)
	if err != nil {
		return nil, vault.ErrInvalidArgument
	}

	var result *BurnResult
	err = s.withOpLock(ctx, vaultID, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			v, err := loadVault(tx, vaultID)
			if err != nil {
				return err
			}
			if err := s.requireManager(v, actor); err != nil {
				return err
			}
			if err := guardMutable(v); err != nil {
				return err
			}
			if v.ActiveInstrument == nil {
				return vault.ErrNoActivePosition
			}
			st, err := parseState(v)
			if err != nil {
				return err
			}
			if burn.Gt(st.InstrumentBalance) {
				return vault.ErrInsufficientFunds
			}
			instrument := *v.ActiveInstrument

			// Full burn releases every remaining collateral unit so floor
			// rounding can never strand dust in the pool.
			var released *uint256.Int
			fullBurn := burn.Eq(st.InstrumentBalance)
			if fullBurn {
				released = new(uint256.Int).Set(st.CollateralAmount)
			} else {
				released, err = vaultmath.MulDiv(st.CollateralAmount, burn, st.InstrumentBalance)
				if err != nil {
					return err
				}
			}

			if st.InstrumentBalance, err = vaultmath.Sub(st.InstrumentBalance, burn); err != nil {
				return err
			}
			if st.CollateralAmount, err = vaultmath.Sub(st.CollateralAmount, released); err != nil {
				return err
			}
			if st.AssetBalance, err = vaultmath.Add(st.AssetBalance, released); err != nil {
				return err
			}
			if fullBurn {
				v.ActiveInstrument = nil
				v.InstrumentIsPut = false
				st.CurrentReserves = uint256.NewInt(0)
				v.WindowExpiry = vault.NextExpiry(s.now(), v.WindowLengthSecs)
			}
			st.store(v)
			if err := tx.Save(v).Error; err != nil {
				return err
			}

			owner := custodyAccount(vaultID)
			counter, err := s.Controller.AccountVaultCounter(ctx, owner)
			if err != nil {
				return err
			}
			if _, err := s.Controller.SubmitActions(ctx, []gateway.Action{
				{Type: gateway.ActionBurn, Owner: owner, VaultCounter: counter, Instrument: instrument, Amount: vaultmath.FormatAmount(burn)},
				{Type: gateway.ActionWithdrawCollateral, Owner: owner, VaultCounter: counter, Amount: vaultmath.FormatAmount(released)},
			}); err != nil {
				return err
			}
			pool, err := s.AddressBook.MarginPool(ctx)
			if err != nil {
				return err
			}
			if err := s.Custody.TransferFrom(ctx, v.AssetDenom, pool, owner, released); err != nil {
				return err
			}

			result = &BurnResult{
				ReleasedCollateral: vaultmath.FormatAmount(released),
				PositionClosed:     fullBurn,
				WindowExpiry:       v.WindowExpiry,
			}
			return recordEvent(tx, vaultID, models.EventCollateralBurned, actor, map[string]interface{}{
				"instrument_amount": in.InstrumentAmount,
				"released":          result.ReleasedCollateral,
				"position_closed":   fullBurn,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SettleResult reports the settlement payout.
type SettleResult struct {
	Payout       string `json:"payout"`
	WindowExpiry int64  `json:"window_expiry"`
}

// Settle closes the cycle after the controller confirms settlement is
// allowed: collateral tracking zeroes and the window reopens unconditionally.
// Settle is permitted while paused so a paused vault can still be unwound.
func (s *Service) Settle(ctx context.Context, vaultID uuid.UUID, actor Actor) (*SettleResult, error) {
	var result *SettleResult
	err := s.withOpLock(ctx, vaultID, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			v, err := loadVault(tx, vaultID)
			if err != nil {
				return err
			}
			if err := s.requireManager(v, actor); err != nil {
				return err
			}
			if v.Closed {
				return vault.ErrPermanentlyClosed
			}
			if v.ActiveInstrument == nil {
				return vault.ErrNoActivePosition
			}
			allowed, err := s.Controller.SettlementAllowed(ctx, *v.ActiveInstrument)
			if err != nil {
				return err
			}
			if !allowed {
				return vault.ErrSettlementNotReady
			}
			st, err := parseState(v)
			if err != nil {
				return err
			}

			owner := custodyAccount(vaultID)
			counter, err := s.Controller.AccountVaultCounter(ctx, owner)
			if err != nil {
				return err
			}
			receipt, err := s.Controller.SubmitActions(ctx, []gateway.Action{
				{Type: gateway.ActionSettle, Owner: owner, VaultCounter: counter, Instrument: *v.ActiveInstrument},
			})
			if err != nil {
				return err
			}

			payout := uint256.NewInt(0)
			if receipt != nil && receipt.Payout != nil {
				payout = receipt.Payout
			}
			if !payout.IsZero() {
				pool, err := s.AddressBook.MarginPool(ctx)
				if err != nil {
					return err
				}
				if err := s.Custody.TransferFrom(ctx, v.AssetDenom, pool, owner, payout); err != nil {
					return err
				}
				if st.AssetBalance, err = vaultmath.Add(st.AssetBalance, payout); err != nil {
					return err
				}
			}

			st.CollateralAmount = uint256.NewInt(0)
			st.InstrumentBalance = uint256.NewInt(0)
			st.CurrentReserves = uint256.NewInt(0)
			v.ActiveInstrument = nil
			v.InstrumentIsPut = false
			v.WindowExpiry = vault.NextExpiry(s.now(), v.WindowLengthSecs)
			st.store(v)
			if err := tx.Save(v).Error; err != nil {
				return err
			}

			result = &SettleResult{
				Payout:       vaultmath.FormatAmount(payout),
				WindowExpiry: v.WindowExpiry,
			}
			return recordEvent(tx, vaultID, models.EventSettled, actor, map[string]interface{}{
				"payout": result.Payout,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SellInput carries the pre-signed order for the swap gateway.
type SellInput struct {
	Order gateway.SignedOrder `json:"order"`
}

// SellResult reports the premium received and the performance fees taken.
type SellResult struct {
	Premium     string `json:"premium"`
	ProtocolFee string `json:"protocol_fee"`
	VaultFee    string `json:"vault_fee"`
}

// SellOrder hands a signed order to the swap gateway and books the premium
// net of performance fees. The order's sender side must be the active
// instrument.
func (s *Service) SellOrder(ctx context.Context, vaultID uuid.UUID, actor Actor, in SellInput) (*SellResult, error) {
	if in.Order.Signature == "" || in.Order.Signer == "" {
		return nil, vault.ErrInvalidArgument
	}
	premium, err := vaultmath.ParsePositive(in.Order.SignerAmount)
	if err != nil {
		return nil, vault.ErrInvalidArgument
	}

	var result *SellResult
	err = s.withOpLock(ctx, vaultID, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			v, err := loadVault(tx, vaultID)
			if err != nil {
				return err
			}
			if err := s.requireManager(v, actor); err != nil {
				return err
			}
			if err := guardMutable(v); err != nil {
				return err
			}
			if v.ActiveInstrument == nil {
				return vault.ErrNoActivePosition
			}
			if in.Order.SenderToken != *v.ActiveInstrument {
				return vault.ErrInstrumentNotCleared
			}
			st, err := parseState(v)
			if err != nil {
				return err
			}
			sold, err := vaultmath.ParsePositive(in.Order.SenderAmount)
			if err != nil {
				return vault.ErrInvalidArgument
			}
			if sold.Gt(st.InstrumentBalance) {
				return vault.ErrInsufficientFunds
			}
			// The sender side leaves the vault with the order.
			if st.InstrumentBalance, err = vaultmath.Sub(st.InstrumentBalance, sold); err != nil {
				return err
			}

			fees, err := s.protocolFees(ctx)
			if err != nil {
				return err
			}
			protocolFee, vaultFee, _, err := vaultmath.ApplyFees(premium, fees.PerformanceFeeBps, v.PerformanceFeeBps)
			if err != nil {
				return err
			}

			retained, err := vaultmath.Sub(premium, protocolFee)
			if err != nil {
				return err
			}
			if st.AssetBalance, err = vaultmath.Add(st.AssetBalance, retained); err != nil {
				return err
			}
			if st.ObligatedFees, err = vaultmath.Add(st.ObligatedFees, vaultFee); err != nil {
				return err
			}
			st.store(v)
			if err := tx.Save(v).Error; err != nil {
				return err
			}

			if err := s.Swap.ExecuteOrder(ctx, in.Order); err != nil {
				return err
			}
			if !protocolFee.IsZero() {
				if err := s.Custody.Transfer(ctx, v.AssetDenom, custodyAccount(vaultID), fees.PayoutAccount, protocolFee); err != nil {
					return err
				}
			}

			result = &SellResult{
				Premium:     vaultmath.FormatAmount(premium),
				ProtocolFee: vaultmath.FormatAmount(protocolFee),
				VaultFee:    vaultmath.FormatAmount(vaultFee),
			}
			return recordEvent(tx, vaultID, models.EventOrderSold, actor, map[string]interface{}{
				"order_id":     in.Order.OrderID,
				"premium":      result.Premium,
				"protocol_fee": result.ProtocolFee,
				"vault_fee":    result.VaultFee,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReactivateWindow reopens an expired window after at least a day of idleness.
// The reopened duration is floored at one day.
func (s *Service) ReactivateWindow(ctx context.Context, vaultID uuid.UUID, actor Actor) (int64, error) {
	var expiry int64
	err := s.withOpLock(ctx, vaultID, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			v, err := loadVault(tx, vaultID)
			if err != nil {
				return err
			}
			if err := s.requireManager(v, actor); err != nil {
				return err
			}
			if err := guardMutable(v); err != nil {
				return err
			}
			now := s.now()
			if vault.WindowOpen(v.WindowExpiry, now) {
				return vault.ErrWindowOpen
			}
			if !vault.CanReactivate(v.WindowExpiry, now) {
				return vault.ErrWindowNotIdle
			}
			v.WindowExpiry = vault.ReactivationExpiry(now, v.WindowLengthSecs)
			if err := tx.Save(v).Error; err != nil {
				return err
			}
			expiry = v.WindowExpiry
			return recordEvent(tx, vaultID, models.EventWindowReactivated, actor, map[string]interface{}{
				"window_expiry": expiry,
			})
		})
	})
	if err != nil {
		return 0, err
	}
	return expiry, nil
}
