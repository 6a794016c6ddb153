package vaults

import (
	"context"
	"testing"
	"time"

	"harbor-backend/internal/constants"
	"harbor-backend/internal/gateway"
	"harbor-backend/internal/models"
	"harbor-backend/internal/vault"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testRig struct {
	svc        *Service
	custody    *gateway.MemoryCustody
	controller *gateway.MemoryController
	swap       *gateway.MemorySwap
	clock      int64
}

func setupRig(t *testing.T, protoFees gateway.ProtocolFees) *testRig {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Vault{}, &models.ShareBalance{}, &models.VaultEvent{}))

	if protoFees.PayoutAccount == "" {
		protoFees.PayoutAccount = "protocol-treasury"
	}
	rig := &testRig{
		custody:    gateway.NewMemoryCustody(),
		controller: gateway.NewMemoryController(),
		clock:      1_700_000_000,
	}
	rig.swap = &gateway.MemorySwap{Custody: rig.custody}
	rig.svc = &Service{
		DB:          db,
		FeeRegistry: &gateway.StaticFeeRegistry{Fees: protoFees},
		Custody:     rig.custody,
		Controller:  rig.controller,
		AddressBook: &gateway.StaticAddressBook{ControllerAccount: "controller", MarginPoolAccount: "margin-pool"},
		Swap:        rig.swap,
	}
	rig.svc.Now = func() time.Time { return time.Unix(rig.clock, 0) }
	return rig
}

func defaultVaultInput() CreateVaultInput {
	return CreateVaultInput{
		Name:             "Harbor ETH Covered Call",
		Symbol:           "hETHc",
		AssetDenom:       "weth",
		AssetDecimals:    8,
		MaximumAssets:    "1000000",
		ReserveBps:       0,
		WindowLengthSecs: 100,
	}
}

func (r *testRig) createVault(t *testing.T, manager uuid.UUID, in CreateVaultInput) *models.Vault {
	t.Helper()
	v, err := r.svc.CreateVault(context.Background(), Actor{UserID: manager, Role: constants.Manager}, in)
	require.NoError(t, err)
	return v
}

func (r *testRig) reload(t *testing.T, id uuid.UUID) *models.Vault {
	t.Helper()
	v, err := loadVault(r.svc.DB, id)
	require.NoError(t, err)
	return v
}

func (r *testRig) custodyBalance(t *testing.T, denom, account string) string {
	t.Helper()
	b, err := r.custody.BalanceOf(context.Background(), denom, account)
	require.NoError(t, err)
	return b.Dec()
}

func TestCreateVault_Validation(t *testing.T) {
	rig := setupRig(t, gateway.ProtocolFees{})
	manager := Actor{UserID: uuid.New(), Role: constants.Manager}
	ctx := context.Background()

	in := defaultVaultInput()
	in.Name = ""
	_, err := rig.svc.CreateVault(ctx, manager, in)
	assert.ErrorIs(t, err, vault.ErrInvalidArgument)

	in = defaultVaultInput()
	in.DepositFeeBps = 5001
	_, err = rig.svc.CreateVault(ctx, manager, in)
	assert.ErrorIs(t, err, vault.ErrFeeOutOfRange)

	in = defaultVaultInput()
	in.ReserveBps = 10001
	_, err = rig.svc.CreateVault(ctx, manager, in)
	assert.ErrorIs(t, err, vault.ErrInvalidArgument)

	in = defaultVaultInput()
	in.MaximumAssets = "0"
	_, err = rig.svc.CreateVault(ctx, manager, in)
	assert.ErrorIs(t, err, vault.ErrInvalidArgument)

	in = defaultVaultInput()
	in.WindowLengthSecs = 0
	_, err = rig.svc.CreateVault(ctx, manager, in)
	assert.ErrorIs(t, err, vault.ErrInvalidArgument)
}

func TestCreateVault_IndependentInstances(t *testing.T) {
	rig := setupRig(t, gateway.ProtocolFees{})
	manager := uuid.New()
	v1 := rig.createVault(t, manager, defaultVaultInput())
	v2 := rig.createVault(t, manager, defaultVaultInput())
	assert.NotEqual(t, v1.VaultID, v2.VaultID)

	rig.custody.Credit("weth", "alice", uint256.NewInt(500))
	_, err := rig.svc.Deposit(context.Background(), v1.VaultID, Actor{UserID: manager}, DepositInput{AccountID: "alice", Amount: "500"})
	require.NoError(t, err)

	// The sibling vault's ledger is untouched.
	assert.Equal(t, "0", rig.reload(t, v2.VaultID).TotalSupply)
	assert.Equal(t, "500", rig.reload(t, v1.VaultID).TotalSupply)
}

func TestDeposit_FeeScenario(t *testing.T) {
	// 1000 at protocol 100bps + vault 200bps: fees 10 and 20, net 970.
	rig := setupRig(t, gateway.ProtocolFees{DepositFeeBps: 100})
	manager := uuid.New()
	in := defaultVaultInput()
	in.DepositFeeBps = 200
	v := rig.createVault(t, manager, in)

	rig.custody.Credit("weth", "alice", uint256.NewInt(1000))
	res, err := rig.svc.Deposit(context.Background(), v.VaultID, Actor{UserID: manager}, DepositInput{AccountID: "alice", Amount: "1000"})
	require.NoError(t, err)

	assert.Equal(t, "10", res.ProtocolFee)
	assert.Equal(t, "20", res.VaultFee)
	assert.Equal(t, "970", res.Net)
	assert.Equal(t, "970", res.SharesMinted)

	got := rig.reload(t, v.VaultID)
	assert.Equal(t, "970", got.TotalSupply)
	assert.Equal(t, "990", got.AssetBalance)
	assert.Equal(t, "20", got.ObligatedFees)

	// First deposit opens the withdrawal window.
	assert.Equal(t, rig.clock+100, got.WindowExpiry)
	assert.True(t, vault.WindowOpen(got.WindowExpiry, rig.clock))

	// Custody moved the gross in and the protocol fee straight out.
	assert.Equal(t, "0", rig.custodyBalance(t, "weth", "alice"))
	assert.Equal(t, "990", rig.custodyBalance(t, "weth", custodyAccount(v.VaultID)))
	assert.Equal(t, "10", rig.custodyBalance(t, "weth", "protocol-treasury"))
}

func TestDeposit_Conservation(t *testing.T) {
	rig := setupRig(t, gateway.ProtocolFees{DepositFeeBps: 100})
	manager := uuid.New()
	in := defaultVaultInput()
	in.DepositFeeBps = 150
	v := rig.createVault(t, manager, in)
	ctx := context.Background()

	rig.custody.Credit("weth", "alice", uint256.NewInt(5000))
	rig.custody.Credit("weth", "bob", uint256.NewInt(5000))

	supply := uint256.NewInt(0)
	for _, dep := range []struct{ account, amount string }{
		{"alice", "1000"}, {"bob", "3333"}, {"alice", "777"},
	} {
		res, err := rig.svc.Deposit(ctx, v.VaultID, Actor{UserID: manager}, DepositInput{AccountID: dep.account, Amount: dep.amount})
		require.NoError(t, err)
		minted, err := uint256.FromDecimal(res.SharesMinted)
		require.NoError(t, err)
		supply.Add(supply, minted)
	}

	got := rig.reload(t, v.VaultID)
	assert.Equal(t, supply.Dec(), got.TotalSupply)

	// Sum of account balances equals total supply.
	var balances []models.ShareBalance
	require.NoError(t, rig.svc.DB.Where("vault_id = ?", v.VaultID).Find(&balances).Error)
	sum := uint256.NewInt(0)
	for _, b := range balances {
		cur, err := uint256.FromDecimal(b.Balance)
		require.NoError(t, err)
		sum.Add(sum, cur)
	}
	assert.Equal(t, got.TotalSupply, sum.Dec())
}

func TestDeposit_CapBoundary(t *testing.T) {
	rig := setupRig(t, gateway.ProtocolFees{})
	manager := uuid.New()
	in := defaultVaultInput()
	in.MaximumAssets = "1000"
	v := rig.createVault(t, manager, in)
	ctx := context.Background()

	rig.custody.Credit("weth", "alice", uint256.NewInt(1001))

	// Exactly to the cap succeeds.
	_, err := rig.svc.Deposit(ctx, v.VaultID, Actor{UserID: manager}, DepositInput{AccountID: "alice", Amount: "1000"})
	require.NoError(t, err)

	// One more unit breaches it.
	_, err = rig.svc.Deposit(ctx, v.VaultID, Actor{UserID: manager}, DepositInput{AccountID: "alice", Amount: "1"})
	assert.ErrorIs(t, err, vault.ErrCapacityExceeded)
}

func TestDeposit_BadInputs(t *testing.T) {
	rig := setupRig(t, gateway.ProtocolFees{})
	manager := uuid.New()
	v := rig.createVault(t, manager, defaultVaultInput())
	ctx := context.Background()
	actor := Actor{UserID: manager}

	_, err := rig.svc.Deposit(ctx, v.VaultID, actor, DepositInput{AccountID: "", Amount: "10"})
	assert.ErrorIs(t, err, vault.ErrZeroAddress)

	_, err = rig.svc.Deposit(ctx, v.VaultID, actor, DepositInput{AccountID: "alice", Amount: "0"})
	assert.ErrorIs(t, err, vault.ErrInvalidArgument)

	_, err = rig.svc.Deposit(ctx, v.VaultID, actor, DepositInput{AccountID: "alice", Amount: "not-a-number"})
	assert.ErrorIs(t, err, vault.ErrInvalidArgument)

	_, err = rig.svc.Deposit(ctx, uuid.New(), actor, DepositInput{AccountID: "alice", Amount: "10"})
	assert.ErrorIs(t, err, vault.ErrVaultNotFound)
}

func TestDeposit_CustodyFailureRollsBack(t *testing.T) {
	rig := setupRig(t, gateway.ProtocolFees{})
	manager := uuid.New()
	v := rig.createVault(t, manager, defaultVaultInput())

	// Depositor never funded: the custody pull fails after local bookkeeping,
	// so the whole transaction must unwind.
	_, err := rig.svc.Deposit(context.Background(), v.VaultID, Actor{UserID: manager}, DepositInput{AccountID: "alice", Amount: "100"})
	require.Error(t, err)

	got := rig.reload(t, v.VaultID)
	assert.Equal(t, "0", got.TotalSupply)
	assert.Equal(t, "0", got.AssetBalance)
	assert.Equal(t, int64(0), got.WindowExpiry)

	balance, err := rig.svc.GetBalance(context.Background(), v.VaultID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "0", balance)
}

func TestWithdraw_RoundTripNeverGains(t *testing.T) {
	rig := setupRig(t, gateway.ProtocolFees{DepositFeeBps: 100, WithdrawalFeeBps: 100})
	manager := uuid.New()
	in := defaultVaultInput()
	in.DepositFeeBps = 200
	in.WithdrawalFeeBps = 200
	v := rig.createVault(t, manager, in)
	ctx := context.Background()
	actor := Actor{UserID: manager}

	rig.custody.Credit("weth", "alice", uint256.NewInt(1000))
	res, err := rig.svc.Deposit(ctx, v.VaultID, actor, DepositInput{AccountID: "alice", Amount: "1000"})
	require.NoError(t, err)

	_, err = rig.svc.Withdraw(ctx, v.VaultID, actor, WithdrawInput{AccountID: "alice", Shares: res.SharesMinted})
	require.NoError(t, err)

	back, err := uint256.FromDecimal(rig.custodyBalance(t, "weth", "alice"))
	require.NoError(t, err)
	assert.True(t, back.Lt(uint256.NewInt(1000)), "round trip must not gain: got back %s", back.Dec())
}

func TestWithdraw_ZeroFeeRoundTrip(t *testing.T) {
	rig := setupRig(t, gateway.ProtocolFees{})
	manager := uuid.New()
	v := rig.createVault(t, manager, defaultVaultInput())
	ctx := context.Background()
	actor := Actor{UserID: manager}

	rig.custody.Credit("weth", "alice", uint256.NewInt(1000))
	_, err := rig.svc.Deposit(ctx, v.VaultID, actor, DepositInput{AccountID: "alice", Amount: "1000"})
	require.NoError(t, err)

	res, err := rig.svc.Withdraw(ctx, v.VaultID, actor, WithdrawInput{AccountID: "alice", Shares: "1000"})
	require.NoError(t, err)
	assert.Equal(t, "1000", res.Gross)
	assert.Equal(t, "1000", res.Net)
	assert.Equal(t, "1000", rig.custodyBalance(t, "weth", "alice"))

	got := rig.reload(t, v.VaultID)
	assert.Equal(t, "0", got.TotalSupply)
	assert.Equal(t, "0", got.AssetBalance)
}

func TestWithdraw_InsufficientShares(t *testing.T) {
	rig := setupRig(t, gateway.ProtocolFees{})
	manager := uuid.New()
	v := rig.createVault(t, manager, defaultVaultInput())
	ctx := context.Background()
	actor := Actor{UserID: manager}

	rig.custody.Credit("weth", "alice", uint256.NewInt(100))
	_, err := rig.svc.Deposit(ctx, v.VaultID, actor, DepositInput{AccountID: "alice", Amount: "100"})
	require.NoError(t, err)

	_, err = rig.svc.Withdraw(ctx, v.VaultID, actor, WithdrawInput{AccountID: "alice", Shares: "101"})
	assert.ErrorIs(t, err, vault.ErrInsufficientFunds)

	_, err = rig.svc.Withdraw(ctx, v.VaultID, actor, WithdrawInput{AccountID: "bob", Shares: "1"})
	assert.ErrorIs(t, err, vault.ErrInsufficientFunds)
}

func TestTransferShares(t *testing.T) {
	rig := setupRig(t, gateway.ProtocolFees{})
	manager := uuid.New()
	v := rig.createVault(t, manager, defaultVaultInput())
	ctx := context.Background()
	actor := Actor{UserID: manager}

	rig.custody.Credit("weth", "alice", uint256.NewInt(500))
	_, err := rig.svc.Deposit(ctx, v.VaultID, actor, DepositInput{AccountID: "alice", Amount: "500"})
	require.NoError(t, err)

	supplyBefore := rig.reload(t, v.VaultID).TotalSupply

	require.NoError(t, rig.svc.TransferShares(ctx, v.VaultID, actor, TransferInput{From: "alice", To: "bob", Shares: "200"}))

	aliceBal, err := rig.svc.GetBalance(ctx, v.VaultID, "alice")
	require.NoError(t, err)
	bobBal, err := rig.svc.GetBalance(ctx, v.VaultID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "300", aliceBal)
	assert.Equal(t, "200", bobBal)
	assert.Equal(t, supplyBefore, rig.reload(t, v.VaultID).TotalSupply)

	// Self-transfer and overdraw are rejected.
	err = rig.svc.TransferShares(ctx, v.VaultID, actor, TransferInput{From: "alice", To: "alice", Shares: "1"})
	assert.ErrorIs(t, err, vault.ErrInvalidArgument)
	err = rig.svc.TransferShares(ctx, v.VaultID, actor, TransferInput{From: "bob", To: "carol", Shares: "201"})
	assert.ErrorIs(t, err, vault.ErrInsufficientFunds)
}

func TestGetVault_WindowQueryIdempotent(t *testing.T) {
	rig := setupRig(t, gateway.ProtocolFees{})
	manager := uuid.New()
	v := rig.createVault(t, manager, defaultVaultInput())
	ctx := context.Background()

	rig.custody.Credit("weth", "alice", uint256.NewInt(100))
	_, err := rig.svc.Deposit(ctx, v.VaultID, Actor{UserID: manager}, DepositInput{AccountID: "alice", Amount: "100"})
	require.NoError(t, err)

	before := rig.reload(t, v.VaultID)
	for i := 0; i < 3; i++ {
		_, open, err := rig.svc.GetVault(ctx, v.VaultID)
		require.NoError(t, err)
		assert.True(t, open)
	}
	after := rig.reload(t, v.VaultID)
	assert.Equal(t, before.WindowExpiry, after.WindowExpiry)
	assert.Equal(t, before.TotalSupply, after.TotalSupply)

	// After expiry the same query flips closed, still without mutating.
	rig.clock += 200
	_, open, err := rig.svc.GetVault(ctx, v.VaultID)
	require.NoError(t, err)
	assert.False(t, open)
	assert.Equal(t, after.WindowExpiry, rig.reload(t, v.VaultID).WindowExpiry)
}

func TestOpLock_RejectsConcurrentOperation(t *testing.T) {
	rig := setupRig(t, gateway.ProtocolFees{})
	mr := miniredis.RunT(t)
	rig.svc.Rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	manager := uuid.New()
	v := rig.createVault(t, manager, defaultVaultInput())
	ctx := context.Background()

	// Simulate an in-flight operation holding the per-vault lock.
	require.NoError(t, mr.Set(opLockPrefix+v.VaultID.String(), "1"))

	rig.custody.Credit("weth", "alice", uint256.NewInt(100))
	_, err := rig.svc.Deposit(ctx, v.VaultID, Actor{UserID: manager}, DepositInput{AccountID: "alice", Amount: "100"})
	assert.ErrorIs(t, err, vault.ErrOperationInProgress)

	// Lock released: the same call goes through.
	mr.Del(opLockPrefix + v.VaultID.String())
	_, err = rig.svc.Deposit(ctx, v.VaultID, Actor{UserID: manager}, DepositInput{AccountID: "alice", Amount: "100"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(opLockPrefix+v.VaultID.String()))
}
