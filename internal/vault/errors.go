package vault

import "errors"

// Every rejection is atomic: the enclosing transaction rolls back and no
// partial state survives. Handlers map each kind to a status code.
var (
	ErrUnauthorized          = errors.New("Caller is not authorized for this vault")
	ErrVaultNotFound         = errors.New("Vault not found")
	ErrInvalidArgument       = errors.New("Invalid argument")
	ErrZeroAddress           = errors.New("Account or instrument must not be empty")
	ErrFeeOutOfRange         = errors.New("Fee rate exceeds the 50% cap")
	ErrInsufficientFunds     = errors.New("Insufficient funds")
	ErrReserveViolation      = errors.New("Withdrawal would breach the reserve")
	ErrObligatedFeeShortfall = errors.New("Obligated fees exceed vault balance")
	ErrCapacityExceeded      = errors.New("Deposit would exceed the vault's maximum assets")
	ErrDustShares            = errors.New("Deposit too small to mint shares")
	ErrWindowOpen            = errors.New("Withdrawal window is open")
	ErrWindowClosed          = errors.New("Withdrawal window is closed")
	ErrWindowNotIdle         = errors.New("Withdrawal window has not been expired long enough")
	ErrInstrumentNotCleared  = errors.New("A different instrument is still active")
	ErrNoActivePosition      = errors.New("No active position")
	ErrSettlementNotReady    = errors.New("Settlement is not ready")
	ErrPaused                = errors.New("Vault is paused")
	ErrPermanentlyClosed     = errors.New("Vault is permanently closed")
	ErrOperationInProgress   = errors.New("Another operation is in progress on this vault")
)
