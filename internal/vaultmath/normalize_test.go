package vaultmath

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 18-decimal asset to an 8-decimal call instrument: divide by 1e10, floored.
func TestNormalize_DownToCallPrecision(t *testing.T) {
	amount, err := ParseAmount("1500000000000000001") // 1.5 units + 1 wei of dust
	require.NoError(t, err)
	out, err := Normalize(amount, 18, InstrumentDecimals(false))
	require.NoError(t, err)
	assert.Equal(t, "150000000", out.Dec())
}

// 6-decimal asset to a 14-decimal put instrument: multiply by 1e8.
func TestNormalize_UpToPutPrecision(t *testing.T) {
	out, err := Normalize(uint256.NewInt(2_000_000), 6, InstrumentDecimals(true))
	require.NoError(t, err)
	assert.Equal(t, "200000000000000", out.Dec())
}

func TestNormalize_SamePrecision(t *testing.T) {
	out, err := Normalize(uint256.NewInt(42), 8, 8)
	require.NoError(t, err)
	assert.Equal(t, "42", out.Dec())
}

// Scaling up near the 256-bit ceiling must fail loudly, not wrap.
func TestNormalize_OverflowRejected(t *testing.T) {
	huge := new(uint256.Int).Sub(new(uint256.Int).Not(uint256.NewInt(0)), uint256.NewInt(0))
	_, err := Normalize(huge, 8, 14)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("")
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	v, err = ParseAmount("12345678901234567890")
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567890", FormatAmount(v))

	_, err = ParseAmount("not-a-number")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParsePositive("0")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
