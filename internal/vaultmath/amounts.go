package vaultmath

import (
	"errors"

	"github.com/holiman/uint256"
)

// Amount columns are stored as decimal strings so sqlite and postgres both keep
// full 256-bit precision.

var (
	ErrOverflow      = errors.New("Amount overflow")
	ErrInvalidAmount = errors.New("Invalid amount")
)

// ParseAmount parses a decimal-string amount as stored in gorm columns.
// Empty string reads as zero (fresh row, column default "").
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return uint256.NewInt(0), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders an amount for storage.
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// ParsePositive parses a user-supplied amount and rejects zero.
func ParsePositive(s string) (*uint256.Int, error) {
	v, err := ParseAmount(s)
	if err != nil {
		return nil, err
	}
	if v.IsZero() {
		return nil, ErrInvalidAmount
	}
	return v, nil
}

// Add returns x+y, erroring on 256-bit overflow.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return sum, nil
}

// Sub returns x-y, erroring on underflow. Ledger amounts are unsigned; a
// negative intermediate always means a caller-side invariant was broken.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	if x.Lt(y) {
		return nil, ErrOverflow
	}
	return new(uint256.Int).Sub(x, y), nil
}
