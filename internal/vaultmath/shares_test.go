package vaultmath

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// First depositor mints the net amount one-to-one.
func TestIssueShares_FirstDeposit(t *testing.T) {
	shares, err := IssueShares(uint256.NewInt(0), uint256.NewInt(970), uint256.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, "970", shares.Dec())
}

// Later deposits mint proportionally to the existing pool.
func TestIssueShares_ProRata(t *testing.T) {
	// Pool doubled in value since issuance: 1000 shares back 2000 assets.
	shares, err := IssueShares(uint256.NewInt(1000), uint256.NewInt(500), uint256.NewInt(2000))
	require.NoError(t, err)
	assert.Equal(t, "250", shares.Dec())
}

// Dust deposits can round to zero shares; the caller rejects those.
func TestIssueShares_DustRoundsToZero(t *testing.T) {
	shares, err := IssueShares(uint256.NewInt(10), uint256.NewInt(1), uint256.NewInt(1_000_000))
	require.NoError(t, err)
	assert.True(t, shares.IsZero())
}

// Redeeming every share drains the whole pool value, nothing more.
func TestRedeemShares_FullRedemption(t *testing.T) {
	gross, err := RedeemShares(uint256.NewInt(970), uint256.NewInt(970), uint256.NewInt(970))
	require.NoError(t, err)
	assert.Equal(t, "970", gross.Dec())
}

// Round trip issue-then-redeem never pays out more than went in.
func TestShares_RoundTripNeverGains(t *testing.T) {
	totalShares := uint256.NewInt(3333)
	poolValue := uint256.NewInt(10_007)
	deposit := uint256.NewInt(999)

	minted, err := IssueShares(totalShares, deposit, poolValue)
	require.NoError(t, err)

	newTotal := new(uint256.Int).Add(totalShares, minted)
	newPool := new(uint256.Int).Add(poolValue, deposit)
	back, err := RedeemShares(minted, newTotal, newPool)
	require.NoError(t, err)

	assert.True(t, back.Cmp(deposit) <= 0, "redeemed %s for deposit %s", back.Dec(), deposit.Dec())
}

func TestRedeemShares_NoSupply(t *testing.T) {
	_, err := RedeemShares(uint256.NewInt(1), uint256.NewInt(0), uint256.NewInt(100))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
