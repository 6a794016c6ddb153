package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"harbor-backend/internal/vaultmath"

	"github.com/holiman/uint256"
)

// HTTP client implementations of the collaborator interfaces. Each remote
// service speaks the standard envelope-less JSON used here; non-2xx responses
// surface as errors and abort the caller's transaction.

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func doJSON(ctx context.Context, client *http.Client, method, url, apiKey string, in, out interface{}) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if apiKey != "" {
		req.Header.Set("api-key", apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient(client).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway %s %s: status %d", method, url, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// HTTPFeeRegistry reads protocol fee rates from the administrator service.
type HTTPFeeRegistry struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func (r *HTTPFeeRegistry) ProtocolFees(ctx context.Context) (ProtocolFees, error) {
	var out ProtocolFees
	err := doJSON(ctx, r.Client, http.MethodGet, r.BaseURL+"/v1/fees", r.APIKey, nil, &out)
	return out, err
}

// HTTPAssetCustody talks to the custody service holding the underlying asset.
type HTTPAssetCustody struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type custodyTransferRequest struct {
	Denom  string `json:"denom"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type custodyBalanceResponse struct {
	Balance string `json:"balance"`
}

func (a *HTTPAssetCustody) BalanceOf(ctx context.Context, denom, account string) (*uint256.Int, error) {
	var out custodyBalanceResponse
	url := fmt.Sprintf("%s/v1/balances/%s/%s", a.BaseURL, denom, account)
	if err := doJSON(ctx, a.Client, http.MethodGet, url, a.APIKey, nil, &out); err != nil {
		return nil, err
	}
	return vaultmath.ParseAmount(out.Balance)
}

func (a *HTTPAssetCustody) TransferFrom(ctx context.Context, denom, from, to string, amount *uint256.Int) error {
	req := custodyTransferRequest{Denom: denom, From: from, To: to, Amount: vaultmath.FormatAmount(amount)}
	return doJSON(ctx, a.Client, http.MethodPost, a.BaseURL+"/v1/transfer-from", a.APIKey, req, nil)
}

func (a *HTTPAssetCustody) Transfer(ctx context.Context, denom, owner, to string, amount *uint256.Int) error {
	req := custodyTransferRequest{Denom: denom, From: owner, To: to, Amount: vaultmath.FormatAmount(amount)}
	return doJSON(ctx, a.Client, http.MethodPost, a.BaseURL+"/v1/transfer", a.APIKey, req, nil)
}

func (a *HTTPAssetCustody) Approve(ctx context.Context, denom, owner, spender string, amount *uint256.Int) error {
	req := custodyTransferRequest{Denom: denom, From: owner, To: spender, Amount: vaultmath.FormatAmount(amount)}
	return doJSON(ctx, a.Client, http.MethodPost, a.BaseURL+"/v1/approve", a.APIKey, req, nil)
}

// HTTPPositionController submits batched actions to the remote position
// manager.
type HTTPPositionController struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type counterResponse struct {
	Counter uint64 `json:"counter"`
}

type actionBatchRequest struct {
	Actions []Action `json:"actions"`
}

type actionBatchResponse struct {
	Payout string `json:"payout,omitempty"`
}

type settlementResponse struct {
	Allowed bool `json:"allowed"`
}

func (p *HTTPPositionController) AccountVaultCounter(ctx context.Context, owner string) (uint64, error) {
	var out counterResponse
	url := fmt.Sprintf("%s/v1/accounts/%s/vault-counter", p.BaseURL, owner)
	if err := doJSON(ctx, p.Client, http.MethodGet, url, p.APIKey, nil, &out); err != nil {
		return 0, err
	}
	return out.Counter, nil
}

func (p *HTTPPositionController) SubmitActions(ctx context.Context, actions []Action) (*ActionReceipt, error) {
	var out actionBatchResponse
	if err := doJSON(ctx, p.Client, http.MethodPost, p.BaseURL+"/v1/operate", p.APIKey, actionBatchRequest{Actions: actions}, &out); err != nil {
		return nil, err
	}
	receipt := &ActionReceipt{}
	if out.Payout != "" {
		payout, err := vaultmath.ParseAmount(out.Payout)
		if err != nil {
			return nil, err
		}
		receipt.Payout = payout
	}
	return receipt, nil
}

func (p *HTTPPositionController) SettlementAllowed(ctx context.Context, instrument string) (bool, error) {
	var out settlementResponse
	url := fmt.Sprintf("%s/v1/instruments/%s/settlement-allowed", p.BaseURL, instrument)
	if err := doJSON(ctx, p.Client, http.MethodGet, url, p.APIKey, nil, &out); err != nil {
		return false, err
	}
	return out.Allowed, nil
}

// HTTPAddressBook resolves collaborator accounts from the registry service.
type HTTPAddressBook struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type addressResponse struct {
	Account string `json:"account"`
}

func (b *HTTPAddressBook) Controller(ctx context.Context) (string, error) {
	var out addressResponse
	if err := doJSON(ctx, b.Client, http.MethodGet, b.BaseURL+"/v1/addresses/controller", b.APIKey, nil, &out); err != nil {
		return "", err
	}
	return out.Account, nil
}

func (b *HTTPAddressBook) MarginPool(ctx context.Context) (string, error) {
	var out addressResponse
	if err := doJSON(ctx, b.Client, http.MethodGet, b.BaseURL+"/v1/addresses/margin-pool", b.APIKey, nil, &out); err != nil {
		return "", err
	}
	return out.Account, nil
}

// HTTPSwapGateway forwards signed orders to the swap-matching service.
type HTTPSwapGateway struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func (s *HTTPSwapGateway) ExecuteOrder(ctx context.Context, order SignedOrder) error {
	return doJSON(ctx, s.Client, http.MethodPost, s.BaseURL+"/v1/orders/execute", s.APIKey, order, nil)
}
