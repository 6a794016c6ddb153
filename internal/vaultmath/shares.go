package vaultmath

import "github.com/holiman/uint256"

// Share issuance and redemption use single-floor pro-rata formulas: one
// truncating division per conversion, so rounding error never exceeds one
// share or one base unit.

// IssueShares computes the shares minted for a net deposit.
//
// First deposit (totalShares == 0) mints net one-to-one: shares carry the
// asset's own decimals, so the normalization factor is 1. Otherwise:
//
//	shares = floor(totalShares * net / poolValue)
//
// where poolValue is the vault's asset balance minus obligated fees, measured
// before the deposit lands.
func IssueShares(totalShares, net, poolValue *uint256.Int) (*uint256.Int, error) {
	if totalShares.IsZero() {
		return new(uint256.Int).Set(net), nil
	}
	if poolValue.IsZero() {
		return nil, ErrInvalidAmount
	}
	return MulDiv(totalShares, net, poolValue)
}

// RedeemShares computes the gross asset payout for burning shares:
//
//	gross = floor(shares * poolValue / totalShares)
func RedeemShares(shares, totalShares, poolValue *uint256.Int) (*uint256.Int, error) {
	if totalShares.IsZero() {
		return nil, ErrInvalidAmount
	}
	return MulDiv(shares, poolValue, totalShares)
}
