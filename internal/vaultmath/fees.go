package vaultmath

import "github.com/holiman/uint256"

// Fee rates are expressed in hundredths of a percent: 100 = 1.00%.
const (
	RateDenominator = 10000
	// MaxFeeBps caps every configurable fee rate at 50.00%.
	MaxFeeBps = 5000
	// MaxReserveBps allows the reserve to be configured up to 100%.
	MaxReserveBps = 10000
)

// ValidFeeRate reports whether a fee rate is within the 50% cap.
func ValidFeeRate(bps uint64) bool {
	return bps <= MaxFeeBps
}

// Fee computes floor(principal * rateBps / 10000). Truncation is the rounding
// policy: callers tolerate dust loss, never gain. A zero rate always yields a
// zero fee.
func Fee(principal *uint256.Int, rateBps uint64) (*uint256.Int, error) {
	if rateBps == 0 || principal.IsZero() {
		return uint256.NewInt(0), nil
	}
	return MulDiv(principal, uint256.NewInt(rateBps), uint256.NewInt(RateDenominator))
}

// ApplyFees deducts a protocol-level and a deployment-level fee from the same
// gross principal. Both rates apply to the gross, so the two fees never
// compound on each other.
func ApplyFees(gross *uint256.Int, protocolBps, localBps uint64) (protocolFee, localFee, net *uint256.Int, err error) {
	protocolFee, err = Fee(gross, protocolBps)
	if err != nil {
		return nil, nil, nil, err
	}
	localFee, err = Fee(gross, localBps)
	if err != nil {
		return nil, nil, nil, err
	}
	net = new(uint256.Int).Sub(gross, protocolFee)
	net, err = Sub(net, localFee)
	if err != nil {
		return nil, nil, nil, err
	}
	return protocolFee, localFee, net, nil
}

// MulDiv computes floor(x * y / d) with a 512-bit intermediate.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrInvalidAmount
	}
	out, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}
