package vaultmath

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Zero rate must always produce a zero fee.
func TestFee_ZeroRate(t *testing.T) {
	fee, err := Fee(uint256.NewInt(1_000_000), 0)
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
}

// For every rate within the cap, fee never exceeds half the principal.
func TestFee_CapBoundsFeeAtHalf(t *testing.T) {
	principal := uint256.NewInt(1_000_001)
	half := uint256.NewInt(500_000) // floor(1000001/2)
	for _, bps := range []uint64{1, 100, 2500, 4999, 5000} {
		require.True(t, ValidFeeRate(bps))
		fee, err := Fee(principal, bps)
		require.NoError(t, err)
		assert.True(t, fee.Cmp(half) <= 0, "rate %d produced fee %s", bps, fee.Dec())
	}
	assert.False(t, ValidFeeRate(5001))
}

// Truncation: 1% of 999 is 9, not 10.
func TestFee_Truncates(t *testing.T) {
	fee, err := Fee(uint256.NewInt(999), 100)
	require.NoError(t, err)
	assert.Equal(t, "9", fee.Dec())
}

// Scenario from the deposit flow: 1000 at 1% protocol + 2% local leaves 970.
func TestApplyFees_ProtocolAndLocal(t *testing.T) {
	proto, local, net, err := ApplyFees(uint256.NewInt(1000), 100, 200)
	require.NoError(t, err)
	assert.Equal(t, "10", proto.Dec())
	assert.Equal(t, "20", local.Dec())
	assert.Equal(t, "970", net.Dec())
}

// Both fees apply to the gross, never to each other's remainder.
func TestApplyFees_NoCompounding(t *testing.T) {
	proto, local, net, err := ApplyFees(uint256.NewInt(10_000), 5000, 5000)
	require.NoError(t, err)
	assert.Equal(t, "5000", proto.Dec())
	assert.Equal(t, "5000", local.Dec())
	assert.True(t, net.IsZero())
}

func TestMulDiv_ZeroDenominator(t *testing.T) {
	_, err := MulDiv(uint256.NewInt(1), uint256.NewInt(1), uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSub_Underflow(t *testing.T) {
	_, err := Sub(uint256.NewInt(1), uint256.NewInt(2))
	assert.ErrorIs(t, err, ErrOverflow)
}
