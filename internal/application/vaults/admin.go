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

// UpdateFeesInput changes vault-level fee rates; nil fields are untouched.
type UpdateFeesInput struct {
	DepositFeeBps     *uint64 `json:"deposit_fee_bps"`
	WithdrawalFeeBps  *uint64 `json:"withdrawal_fee_bps"`
	PerformanceFeeBps *uint64 `json:"performance_fee_bps"`
}

// UpdateFees adjusts the deployment-level rates, each capped at 50%.
func (s *Service) UpdateFees(ctx context.Context, vaultID uuid.UUID, actor Actor, in UpdateFeesInput) (*models.Vault, error) {
	for _, rate := range []*uint64{in.DepositFeeBps, in.WithdrawalFeeBps, in.PerformanceFeeBps} {
		if rate != nil && !vaultmath.ValidFeeRate(*rate) {
			return nil, vault.ErrFeeOutOfRange
		}
	}
	var out *models.Vault
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
			if in.DepositFeeBps != nil {
				v.DepositFeeBps = *in.DepositFeeBps
			}
			if in.WithdrawalFeeBps != nil {
				v.WithdrawalFeeBps = *in.WithdrawalFeeBps
			}
			if in.PerformanceFeeBps != nil {
				v.PerformanceFeeBps = *in.PerformanceFeeBps
			}
			if err := tx.Save(v).Error; err != nil {
				return err
			}
			out = v
			return recordEvent(tx, vaultID, models.EventFeesUpdated, actor, map[string]interface{}{
				"deposit_fee_bps":     v.DepositFeeBps,
				"withdrawal_fee_bps":  v.WithdrawalFeeBps,
				"performance_fee_bps": v.PerformanceFeeBps,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCap changes the maximum asset capacity.
func (s *Service) UpdateCap(ctx context.Context, vaultID uuid.UUID, actor Actor, maximumAssets string) (*models.Vault, error) {
	limit, err := vaultmath.ParsePositive(maximumAssets)
	if err != nil {
		return nil, vault.ErrInvalidArgument
	}
	var out *models.Vault
	err = s.withOpLock(ctx, vaultID, func() error {
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
			v.MaximumAssets = vaultmath.FormatAmount(limit)
			if err := tx.Save(v).Error; err != nil {
				return err
			}
			out = v
			return recordEvent(tx, vaultID, models.EventCapUpdated, actor, map[string]interface{}{
				"maximum_assets": v.MaximumAssets,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SweepFees pays the obligated-fee liability out to the manager and zeroes
// it. A liability exceeding the held balance means an invariant broke; the
// sweep refuses rather than overdrawing.
func (s *Service) SweepFees(ctx context.Context, vaultID uuid.UUID, actor Actor) (string, error) {
	var swept string
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
			st, err := parseState(v)
			if err != nil {
				return err
			}
			if st.ObligatedFees.IsZero() {
				return vault.ErrInvalidArgument
			}
			if st.ObligatedFees.Gt(st.AssetBalance) {
				return vault.ErrObligatedFeeShortfall
			}
			amount := new(uint256.Int).Set(st.ObligatedFees)
			if st.AssetBalance, err = vaultmath.Sub(st.AssetBalance, amount); err != nil {
				return err
			}
			st.ObligatedFees = uint256.NewInt(0)
			st.store(v)
			if err := tx.Save(v).Error; err != nil {
				return err
			}
			if err := s.Custody.Transfer(ctx, v.AssetDenom, custodyAccount(vaultID), managerAccount(v.ManagerID), amount); err != nil {
				return err
			}
			swept = vaultmath.FormatAmount(amount)
			return recordEvent(tx, vaultID, models.EventFeesSwept, actor, map[string]interface{}{
				"amount": swept,
			})
		})
	})
	if err != nil {
		return "", err
	}
	return swept, nil
}

// SetPaused pauses or resumes the vault. Unpausing a paused vault is always
// allowed; everything else mutating is not.
func (s *Service) SetPaused(ctx context.Context, vaultID uuid.UUID, actor Actor, paused bool) error {
	return s.withOpLock(ctx, vaultID, func() error {
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
			if v.Paused == paused {
				return nil
			}
			v.Paused = paused
			if err := tx.Save(v).Error; err != nil {
				return err
			}
			eventType := models.EventPaused
			if !paused {
				eventType = models.EventUnpaused
			}
			return recordEvent(tx, vaultID, eventType, actor, map[string]interface{}{})
		})
	})
}

// Close permanently closes the vault. Terminal: no mutation ever succeeds
// again. Requires no active position so depositors are not locked out.
func (s *Service) Close(ctx context.Context, vaultID uuid.UUID, actor Actor) error {
	return s.withOpLock(ctx, vaultID, func() error {
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
			if v.ActiveInstrument != nil {
				return vault.ErrInstrumentNotCleared
			}
			v.Closed = true
			if err := tx.Save(v).Error; err != nil {
				return err
			}
			return recordEvent(tx, vaultID, models.EventClosed, actor, map[string]interface{}{})
		})
	})
}
