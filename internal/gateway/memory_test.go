package gateway

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySwap_ExecuteOrderCreditsPremium(t *testing.T) {
	custody := NewMemoryCustody()
	swap := &MemorySwap{Custody: custody}

	order := SignedOrder{
		OrderID:      "ord-1",
		Signer:       "market-maker",
		SignerToken:  "weth",
		SignerAmount: "100",
		Sender:       "vault:abc",
		SenderToken:  "weth-call-3000",
		SenderAmount: "400",
		Signature:    "0xsigned",
	}
	require.NoError(t, swap.ExecuteOrder(context.Background(), order))

	got, err := custody.BalanceOf(context.Background(), "weth", "vault:abc")
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(100), got)
	require.Len(t, swap.Orders, 1)

	// Without a custody backend the fill is only recorded.
	bare := &MemorySwap{}
	require.NoError(t, bare.ExecuteOrder(context.Background(), order))
	require.Len(t, bare.Orders, 1)
}
