package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/holiman/uint256"
)

// In-memory collaborators for development mode and tests. When no external
// service URLs are configured the router wires these so the API stays fully
// operational against local state.

var ErrCustodyInsufficient = errors.New("Custody balance too low")

// StaticFeeRegistry serves a fixed protocol fee schedule.
type StaticFeeRegistry struct {
	Fees ProtocolFees
}

func (s *StaticFeeRegistry) ProtocolFees(ctx context.Context) (ProtocolFees, error) {
	return s.Fees, nil
}

// MemoryCustody is a process-local fungible-asset ledger keyed by
// denom/account.
type MemoryCustody struct {
	mu       sync.Mutex
	balances map[string]*uint256.Int
}

func NewMemoryCustody() *MemoryCustody {
	return &MemoryCustody{balances: make(map[string]*uint256.Int)}
}

func key(denom, account string) string { return denom + "/" + account }

// Credit funds an account directly; test and dev seeding only.
func (m *MemoryCustody) Credit(denom, account string, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(denom, account, amount)
}

func (m *MemoryCustody) credit(denom, account string, amount *uint256.Int) {
	k := key(denom, account)
	cur, ok := m.balances[k]
	if !ok {
		cur = uint256.NewInt(0)
		m.balances[k] = cur
	}
	cur.Add(cur, amount)
}

func (m *MemoryCustody) debit(denom, account string, amount *uint256.Int) error {
	cur, ok := m.balances[key(denom, account)]
	if !ok || cur.Lt(amount) {
		return ErrCustodyInsufficient
	}
	cur.Sub(cur, amount)
	return nil
}

func (m *MemoryCustody) BalanceOf(ctx context.Context, denom, account string) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.balances[key(denom, account)]
	if !ok {
		return uint256.NewInt(0), nil
	}
	return new(uint256.Int).Set(cur), nil
}

func (m *MemoryCustody) TransferFrom(ctx context.Context, denom, from, to string, amount *uint256.Int) error {
	return m.Transfer(ctx, denom, from, to, amount)
}

func (m *MemoryCustody) Transfer(ctx context.Context, denom, owner, to string, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.debit(denom, owner, amount); err != nil {
		return err
	}
	m.credit(denom, to, amount)
	return nil
}

func (m *MemoryCustody) Approve(ctx context.Context, denom, owner, spender string, amount *uint256.Int) error {
	// Allowances are enforced by the remote custody service; locally a no-op.
	return nil
}

// MemoryController accepts every batch and records it for inspection.
type MemoryController struct {
	mu         sync.Mutex
	counters   map[string]uint64
	Batches    [][]Action
	Settleable map[string]bool
	// SettlePayout is returned for settle batches.
	SettlePayout *uint256.Int
	// Fail forces the next submission to error (rollback paths in tests).
	Fail error
}

func NewMemoryController() *MemoryController {
	return &MemoryController{counters: make(map[string]uint64), Settleable: make(map[string]bool)}
}

func (m *MemoryController) AccountVaultCounter(ctx context.Context, owner string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[owner], nil
}

func (m *MemoryController) SubmitActions(ctx context.Context, actions []Action) (*ActionReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	receipt := &ActionReceipt{}
	for _, a := range actions {
		if a.Type == ActionOpenVault {
			m.counters[a.Owner]++
		}
		if a.Type == ActionSettle && m.SettlePayout != nil {
			receipt.Payout = new(uint256.Int).Set(m.SettlePayout)
		}
	}
	m.Batches = append(m.Batches, actions)
	return receipt, nil
}

func (m *MemoryController) SettlementAllowed(ctx context.Context, instrument string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Settleable[instrument], nil
}

// StaticAddressBook resolves fixed collaborator accounts.
type StaticAddressBook struct {
	ControllerAccount string
	MarginPoolAccount string
}

func (s *StaticAddressBook) Controller(ctx context.Context) (string, error) {
	return s.ControllerAccount, nil
}

func (s *StaticAddressBook) MarginPool(ctx context.Context) (string, error) {
	return s.MarginPoolAccount, nil
}

// MemorySwap records executed orders; Fail forces an error. When Custody is
// set the signer side of a filled order is credited to the sender's account,
// so dev-mode custody balances track the ledger.
type MemorySwap struct {
	mu      sync.Mutex
	Orders  []SignedOrder
	Custody *MemoryCustody
	Fail    error
}

func (m *MemorySwap) ExecuteOrder(ctx context.Context, order SignedOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if m.Custody != nil {
		premium, err := uint256.FromDecimal(order.SignerAmount)
		if err != nil {
			return err
		}
		m.Custody.Credit(order.SignerToken, order.Sender, premium)
	}
	m.Orders = append(m.Orders, order)
	return nil
}
