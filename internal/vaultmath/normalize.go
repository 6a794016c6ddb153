package vaultmath

import "github.com/holiman/uint256"

// External instrument precisions. Calls are denominated in the instrument's
// own 8-decimal units; puts in strike-adjusted 14-decimal units.
const (
	CallInstrumentDecimals = 8
	PutInstrumentDecimals  = 14
)

// MaxAssetDecimals bounds configurable asset precision.
const MaxAssetDecimals = 30

// InstrumentDecimals returns the external precision for an instrument polarity.
func InstrumentDecimals(isPut bool) uint64 {
	if isPut {
		return PutInstrumentDecimals
	}
	return CallInstrumentDecimals
}

// Normalize converts an amount between two fixed-point precisions. Scaling up
// multiplies by a power of ten (overflow-checked); scaling down divides with
// truncation, so converting down and back up can only lose dust.
func Normalize(amount *uint256.Int, fromDecimals, toDecimals uint64) (*uint256.Int, error) {
	if fromDecimals == toDecimals {
		return new(uint256.Int).Set(amount), nil
	}
	if fromDecimals < toDecimals {
		factor := pow10(toDecimals - fromDecimals)
		out, overflow := new(uint256.Int).MulOverflow(amount, factor)
		if overflow {
			return nil, ErrOverflow
		}
		return out, nil
	}
	return new(uint256.Int).Div(amount, pow10(fromDecimals-toDecimals)), nil
}

func pow10(n uint64) *uint256.Int {
	out := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := uint64(0); i < n; i++ {
		out.Mul(out, ten)
	}
	return out
}
