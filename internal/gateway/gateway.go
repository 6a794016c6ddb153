package gateway

import (
	"context"

	"github.com/holiman/uint256"
)

// External collaborators are fixed remote services reached over JSON/HTTP.
// The ledger engine only sees these interfaces; tests substitute in-memory
// fakes, production wires the HTTP clients in this package.

// ProtocolFees is the administrator-level fee schedule. Rates are in
// hundredths of a percent and are clamped to the 50% cap by the caller.
type ProtocolFees struct {
	DepositFeeBps     uint64 `json:"deposit_fee_bps"`
	WithdrawalFeeBps  uint64 `json:"withdrawal_fee_bps"`
	PerformanceFeeBps uint64 `json:"performance_fee_bps"`
	PayoutAccount     string `json:"payout_account"`
}

// FeeRegistry is the administrator/factory service: current protocol fee
// rates and the administrator payout account.
type FeeRegistry interface {
	ProtocolFees(ctx context.Context) (ProtocolFees, error)
}

// AssetCustody is the underlying fungible asset. Transfers move real value;
// a failed call aborts the enclosing ledger transaction.
type AssetCustody interface {
	BalanceOf(ctx context.Context, denom, account string) (*uint256.Int, error)
	// TransferFrom pulls pre-authorized funds from a depositor into custody.
	TransferFrom(ctx context.Context, denom, from, to string, amount *uint256.Int) error
	// Transfer pushes funds out of the owner's custody account.
	Transfer(ctx context.Context, denom, owner, to string, amount *uint256.Int) error
	// Approve grants a spender (the margin pool) an allowance on the owner's funds.
	Approve(ctx context.Context, denom, owner, spender string, amount *uint256.Int) error
}

// Action types accepted by the position controller's batched entrypoint.
const (
	ActionOpenVault          = "open_vault"
	ActionDepositCollateral  = "deposit_collateral"
	ActionMint               = "mint"
	ActionBurn               = "burn"
	ActionWithdrawCollateral = "withdraw_collateral"
	ActionSettle             = "settle"
)

// Action is one step in a batched position-controller submission.
type Action struct {
	Type         string `json:"type"`
	Owner        string `json:"owner"`
	VaultCounter uint64 `json:"vault_counter"`
	Instrument   string `json:"instrument,omitempty"`
	Amount       string `json:"amount,omitempty"`
}

// ActionReceipt is the controller's response to a batch. Payout is non-nil
// only for settle batches.
type ActionReceipt struct {
	Payout *uint256.Int
}

// PositionController is the remote derivative position manager.
type PositionController interface {
	AccountVaultCounter(ctx context.Context, owner string) (uint64, error)
	SubmitActions(ctx context.Context, actions []Action) (*ActionReceipt, error)
	SettlementAllowed(ctx context.Context, instrument string) (bool, error)
}

// AddressBook resolves collaborator accounts: the controller identity used as
// action owner prefix and the margin pool that needs an asset allowance.
type AddressBook interface {
	Controller(ctx context.Context) (string, error)
	MarginPool(ctx context.Context) (string, error)
}

// SignedOrder is a pre-signed atomic exchange: the sender side gives up
// instrument units, the signer side pays premium in the underlying asset.
// Signature verification happens inside the swap service, not here.
type SignedOrder struct {
	OrderID      string `json:"order_id"`
	Signer       string `json:"signer"`
	SignerToken  string `json:"signer_token"`
	SignerAmount string `json:"signer_amount"`
	Sender       string `json:"sender"`
	SenderToken  string `json:"sender_token"`
	SenderAmount string `json:"sender_amount"`
	Expiry       int64  `json:"expiry"`
	Signature    string `json:"signature"`
}

// SwapGateway executes signed orders atomically.
type SwapGateway interface {
	ExecuteOrder(ctx context.Context, order SignedOrder) error
}
