package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/resilience"
)

const dydxIndexerBaseURL = "https://indexer.dydx.trade"

// ErrDydxSigningUnsupported is returned by every order-mutating DydxClient
// method. dYdX v4 order placement and cancellation are Cosmos SDK
// transactions signed with the account's mnemonic; the original's
// `dydx_v4_client.rs` delegates that signing to the `dydx` Rust crate, and
// no equivalent Cosmos transaction-signing library is present among this
// repo's examples. DydxClient therefore only implements the indexer's
// public read endpoints (balances, health); a future connector needs a
// Cosmos SDK client (e.g. one of the cosmos-sdk/CosmWasm Go modules) to
// fill in signing.
var ErrDydxSigningUnsupported = fmt.Errorf("dydx order placement requires cosmos tx signing, not implemented")

// DydxClient is the stub dYdX v4 connector gated by DYDX_MNEMONIC /
// DYDX_CONFIG_PATH, per spec.md §6. It reads account and balance state from
// the public indexer REST API; order placement and cancellation are not
// implemented (ErrDydxSigningUnsupported).
type DydxClient struct {
	address    string
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
}

// NewDydxClient constructs a DydxClient for the account address derived
// from the configured mnemonic. Address derivation itself (Cosmos
// bech32, slip-0044 coin type 118) is also out of scope without a Cosmos
// SDK dependency, so callers supply the address directly; the supervisor
// wiring treats an empty address as "health-check only, no account data".
func NewDydxClient(address string) *DydxClient {
	return &DydxClient{
		address:    address,
		baseURL:    dydxIndexerBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "dydx",
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
			WindowDuration:   time.Minute,
		}),
	}
}

func (c *DydxClient) Name() string { return "dydx" }

func (c *DydxClient) get(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("dydx indexer error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func (c *DydxClient) PlaceOrder(ctx context.Context, order Order) (string, error) {
	return "", ErrDydxSigningUnsupported
}

func (c *DydxClient) CancelOrder(ctx context.Context, orderID string) error {
	return ErrDydxSigningUnsupported
}

func (c *DydxClient) GetOrderStatus(ctx context.Context, orderID string) (Status, error) {
	return StatusUnknown, ErrDydxSigningUnsupported
}

type dydxSubaccount struct {
	EquityUSDC         string `json:"equity"`
	FreeCollateralUSDC string `json:"freeCollateral"`
}

type dydxSubaccountResponse struct {
	Subaccount dydxSubaccount `json:"subaccount"`
}

func (c *DydxClient) GetBalance(ctx context.Context, currency string) ([]BalanceInfo, error) {
	if c.address == "" {
		return nil, fmt.Errorf("dydx client has no account address configured")
	}
	if currency != "" && currency != "USDC" {
		return nil, nil
	}

	var result dydxSubaccountResponse
	err := c.breaker.Call(func() error {
		data, callErr := c.get(fmt.Sprintf("/v4/addresses/%s/subaccountNumber/0", c.address))
		if callErr != nil {
			return callErr
		}
		return json.Unmarshal(data, &result)
	})
	if err != nil {
		return nil, err
	}

	equity, err := strconv.ParseFloat(result.Subaccount.EquityUSDC, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing dydx equity: %w", err)
	}
	free, err := strconv.ParseFloat(result.Subaccount.FreeCollateralUSDC, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing dydx free collateral: %w", err)
	}

	total, err := money.NewPrice(equity)
	if err != nil {
		return nil, err
	}
	available, err := money.NewPrice(free)
	if err != nil {
		return nil, err
	}
	locked, err := money.NewPrice(equity - free)
	if err != nil {
		locked = money.MustPrice(0)
	}

	return []BalanceInfo{{
		Currency:  "USDC",
		Total:     total,
		Available: available,
		Locked:    locked,
		Timestamp: time.Now(),
	}}, nil
}

func (c *DydxClient) IsHealthy(ctx context.Context) bool {
	return c.breaker.Call(func() error {
		_, err := c.get("/v4/height")
		return err
	}) == nil
}
