package vaults

import (
	"context"

	"harbor-backend/internal/models"
	"harbor-backend/internal/vault"
	"harbor-backend/internal/vaultmath"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"gorm.io/gorm"
)

// DepositInput credits shares for underlying pulled from the depositor.
type DepositInput struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
}

// DepositResult reports the issuance breakdown.
type DepositResult struct {
	SharesMinted string `json:"shares_minted"`
	ProtocolFee  string `json:"protocol_fee"`
	VaultFee     string `json:"vault_fee"`
	Net          string `json:"net"`
	WindowExpiry int64  `json:"window_expiry"`
}

// Deposit pulls the gross amount from the depositor, deducts protocol and
// vault deposit fees from it, and mints shares pro rata against the pool
// value. The first deposit opens the withdrawal window.
func (s *Service) Deposit(ctx context.Context, vaultID uuid.UUID, actor Actor, in DepositInput) (*DepositResult, error) {
	if in.AccountID == "" {
		return nil, vault.ErrZeroAddress
	}
	amount, err := vaultmath.ParsePositive(in.Amount)
	if err != nil {
		return nil, vault.ErrInvalidArgument
	}

	var result *DepositResult
	err = s.withOpLock(ctx, vaultID, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			v, err := loadVault(tx, vaultID)
			if err != nil {
				return err
			}
			if err := guardMutable(v); err != nil {
				return err
			}
			st, err := parseState(v)
			if err != nil {
				return err
			}

			fees, err := s.protocolFees(ctx)
			if err != nil {
				return err
			}
			protocolFee, vaultFee, net, err := vaultmath.ApplyFees(amount, fees.DepositFeeBps, v.DepositFeeBps)
			if err != nil {
				return err
			}

			// The protocol fee leaves immediately, so only amount-protocolFee
			// counts against the cap.
			retained, err := vaultmath.Sub(amount, protocolFee)
			if err != nil {
				return err
			}
			newBalance, err := vaultmath.Add(st.AssetBalance, retained)
			if err != nil {
				return err
			}
			total, err := vaultmath.Add(newBalance, st.CollateralAmount)
			if err != nil {
				return err
			}
			if total.Gt(st.MaximumAssets) {
				return vault.ErrCapacityExceeded
			}

			poolValue, err := st.poolValue()
			if err != nil {
				return err
			}
			shares, err := vaultmath.IssueShares(st.TotalSupply, net, poolValue)
			if err != nil {
				return err
			}
			if shares.IsZero() {
				return vault.ErrDustShares
			}

			firstDeposit := st.TotalSupply.IsZero()

			// Local bookkeeping first; a failed gateway call below unwinds it.
			st.AssetBalance = newBalance
			if st.TotalSupply, err = vaultmath.Add(st.TotalSupply, shares); err != nil {
				return err
			}
			if st.ObligatedFees, err = vaultmath.Add(st.ObligatedFees, vaultFee); err != nil {
				return err
			}
			if firstDeposit {
				v.WindowExpiry = vault.NextExpiry(s.now(), v.WindowLengthSecs)
			}
			st.store(v)
			if err := tx.Save(v).Error; err != nil {
				return err
			}
			if err := creditShares(tx, vaultID, in.AccountID, shares); err != nil {
				return err
			}

			if err := s.Custody.TransferFrom(ctx, v.AssetDenom, in.AccountID, custodyAccount(vaultID), amount); err != nil {
				return err
			}
			if !protocolFee.IsZero() {
				if err := s.Custody.Transfer(ctx, v.AssetDenom, custodyAccount(vaultID), fees.PayoutAccount, protocolFee); err != nil {
					return err
				}
			}

			result = &DepositResult{
				SharesMinted: vaultmath.FormatAmount(shares),
				ProtocolFee:  vaultmath.FormatAmount(protocolFee),
				VaultFee:     vaultmath.FormatAmount(vaultFee),
				Net:          vaultmath.FormatAmount(net),
				WindowExpiry: v.WindowExpiry,
			}
			return recordEvent(tx, vaultID, models.EventDeposit, actor, map[string]interface{}{
				"account_id":    in.AccountID,
				"amount":        in.Amount,
				"shares_minted": result.SharesMinted,
				"protocol_fee":  result.ProtocolFee,
				"vault_fee":     result.VaultFee,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WithdrawInput burns shares for underlying.
type WithdrawInput struct {
	AccountID string `json:"account_id"`
	Shares    string `json:"shares"`
}

// WithdrawResult reports the payout breakdown.
type WithdrawResult struct {
	SharesBurned string `json:"shares_burned"`
	Gross        string `json:"gross"`
	ProtocolFee  string `json:"protocol_fee"`
	VaultFee     string `json:"vault_fee"`
	Net          string `json:"net"`
}

// Withdraw redeems shares for their pro-rata slice of the pool, net of
// withdrawal fees. While the window is closed and a position is active the
// payout may not dip the remaining balance below the frozen reserve.
func (s *Service) Withdraw(ctx context.Context, vaultID uuid.UUID, actor Actor, in WithdrawInput) (*WithdrawResult, error) {
	if in.AccountID == "" {
		return nil, vault.ErrZeroAddress
	}
	shares, err := vaultmath.ParsePositive(in.Shares)
	if err != nil {
		return nil, vault.ErrInvalidArgument
	}

	var result *WithdrawResult
	err = s.withOpLock(ctx, vaultID, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			v, err := loadVault(tx, vaultID)
			if err != nil {
				return err
			}
			if err := guardMutable(v); err != nil {
				return err
			}
			st, err := parseState(v)
			if err != nil {
				return err
			}

			balance, err := accountShares(tx, vaultID, in.AccountID)
			if err != nil {
				return err
			}
			if balance.Lt(shares) {
				return vault.ErrInsufficientFunds
			}

			poolValue, err := st.poolValue()
			if err != nil {
				return err
			}
			gross, err := vaultmath.RedeemShares(shares, st.TotalSupply, poolValue)
			if err != nil {
				return err
			}

			fees, err := s.protocolFees(ctx)
			if err != nil {
				return err
			}
			protocolFee, vaultFee, net, err := vaultmath.ApplyFees(gross, fees.WithdrawalFeeBps, v.WithdrawalFeeBps)
			if err != nil {
				return err
			}
			if net.IsZero() {
				return vault.ErrInvalidArgument
			}

			// Outflow excludes the vault fee, which stays behind as obligated.
			outflow, err := vaultmath.Sub(gross, vaultFee)
			if err != nil {
				return err
			}
			if st.AssetBalance.Lt(outflow) {
				return vault.ErrInsufficientFunds
			}
			remaining, err := vaultmath.Sub(st.AssetBalance, outflow)
			if err != nil {
				return err
			}

			// Reserve gate only binds while collateral is deployed and the
			// window is shut.
			windowOpen := vault.WindowOpen(v.WindowExpiry, s.now())
			if !windowOpen && v.ActiveInstrument != nil {
				newObligated, err := vaultmath.Add(st.ObligatedFees, vaultFee)
				if err != nil {
					return err
				}
				free, err := vaultmath.Sub(remaining, newObligated)
				if err != nil {
					return vault.ErrReserveViolation
				}
				if free.Lt(st.CurrentReserves) {
					return vault.ErrReserveViolation
				}
			}

			st.AssetBalance = remaining
			if st.TotalSupply, err = vaultmath.Sub(st.TotalSupply, shares); err != nil {
				return err
			}
			if st.ObligatedFees, err = vaultmath.Add(st.ObligatedFees, vaultFee); err != nil {
				return err
			}
			st.store(v)
			if err := tx.Save(v).Error; err != nil {
				return err
			}
			if err := debitShares(tx, vaultID, in.AccountID, shares); err != nil {
				return err
			}

			if err := s.Custody.Transfer(ctx, v.AssetDenom, custodyAccount(vaultID), in.AccountID, net); err != nil {
				return err
			}
			if !protocolFee.IsZero() {
				if err := s.Custody.Transfer(ctx, v.AssetDenom, custodyAccount(vaultID), fees.PayoutAccount, protocolFee); err != nil {
					return err
				}
			}

			result = &WithdrawResult{
				SharesBurned: vaultmath.FormatAmount(shares),
				Gross:        vaultmath.FormatAmount(gross),
				ProtocolFee:  vaultmath.FormatAmount(protocolFee),
				VaultFee:     vaultmath.FormatAmount(vaultFee),
				Net:          vaultmath.FormatAmount(net),
			}
			return recordEvent(tx, vaultID, models.EventWithdraw, actor, map[string]interface{}{
				"account_id":    in.AccountID,
				"shares_burned": result.SharesBurned,
				"gross":         result.Gross,
				"net":           result.Net,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TransferInput moves shares between accounts without touching assets.
type TransferInput struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Shares string `json:"shares"`
}

// TransferShares moves shares ledger-internally; total supply is unchanged.
func (s *Service) TransferShares(ctx context.Context, vaultID uuid.UUID, actor Actor, in TransferInput) error {
	if in.From == "" || in.To == "" {
		return vault.ErrZeroAddress
	}
	if in.From == in.To {
		return vault.ErrInvalidArgument
	}
	shares, err := vaultmath.ParsePositive(in.Shares)
	if err != nil {
		return vault.ErrInvalidArgument
	}

	return s.withOpLock(ctx, vaultID, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			v, err := loadVault(tx, vaultID)
			if err != nil {
				return err
			}
			if err := guardMutable(v); err != nil {
				return err
			}
			balance, err := accountShares(tx, vaultID, in.From)
			if err != nil {
				return err
			}
			if balance.Lt(shares) {
				return vault.ErrInsufficientFunds
			}
			if err := debitShares(tx, vaultID, in.From, shares); err != nil {
				return err
			}
			if err := creditShares(tx, vaultID, in.To, shares); err != nil {
				return err
			}
			return recordEvent(tx, vaultID, models.EventTransfer, actor, map[string]interface{}{
				"from":   in.From,
				"to":     in.To,
				"shares": in.Shares,
			})
		})
	})
}

// accountShares reads an account's share balance; missing rows are zero.
func accountShares(tx *gorm.DB, vaultID uuid.UUID, accountID string) (*uint256.Int, error) {
	var b models.ShareBalance
	err := tx.Where("vault_id = ? AND account_id = ?", vaultID, accountID).First(&b).Error
	if err == gorm.ErrRecordNotFound {
		return uint256.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return vaultmath.ParseAmount(b.Balance)
}

// creditShares creates the balance row on first credit, mirroring implicit
// account creation.
func creditShares(tx *gorm.DB, vaultID uuid.UUID, accountID string, shares *uint256.Int) error {
	var b models.ShareBalance
	err := tx.Where("vault_id = ? AND account_id = ?", vaultID, accountID).First(&b).Error
	if err == gorm.ErrRecordNotFound {
		return tx.Create(&models.ShareBalance{
			VaultID:   vaultID,
			AccountID: accountID,
			Balance:   vaultmath.FormatAmount(shares),
		}).Error
	}
	if err != nil {
		return err
	}
	cur, err := vaultmath.ParseAmount(b.Balance)
	if err != nil {
		return err
	}
	sum, err := vaultmath.Add(cur, shares)
	if err != nil {
		return err
	}
	b.Balance = vaultmath.FormatAmount(sum)
	return tx.Save(&b).Error
}

// debitShares zeroes rather than deletes on full redemption.
func debitShares(tx *gorm.DB, vaultID uuid.UUID, accountID string, shares *uint256.Int) error {
	var b models.ShareBalance
	if err := tx.Where("vault_id = ? AND account_id = ?", vaultID, accountID).First(&b).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return vault.ErrInsufficientFunds
		}
		return err
	}
	cur, err := vaultmath.ParseAmount(b.Balance)
	if err != nil {
		return err
	}
	remaining, err := vaultmath.Sub(cur, shares)
	if err != nil {
		return vault.ErrInsufficientFunds
	}
	b.Balance = vaultmath.FormatAmount(remaining)
	return tx.Save(&b).Error
}
