package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tradecore/engine/internal/money"
)

// DydxStream polls the dYdX v4 public indexer's perpetual-market endpoint
// for oracle prices, the read-only counterpart to DydxClient: no signing
// required, so it needs none of DydxClient's ErrDydxSigningUnsupported
// carve-out.
type DydxStream struct {
	baseURL      string
	pollInterval time.Duration
	httpClient   *http.Client
}

// NewDydxStream constructs a DydxStream polling every interval.
func NewDydxStream(interval time.Duration) *DydxStream {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &DydxStream{
		baseURL:      "https://indexer.dydx.trade",
		pollInterval: interval,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *DydxStream) Name() string { return "dydx" }

type dydxPerpetualMarket struct {
	OraclePrice string `json:"oraclePrice"`
}

func (s *DydxStream) fetchPrice(ticker string) (money.Price, error) {
	req, err := http.NewRequest(http.MethodGet, s.baseURL+"/v4/perpetualMarkets?ticker="+ticker, nil)
	if err != nil {
		return money.Price{}, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return money.Price{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return money.Price{}, err
	}
	if resp.StatusCode >= 400 {
		return money.Price{}, fmt.Errorf("dydx indexer error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Markets map[string]dydxPerpetualMarket `json:"markets"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return money.Price{}, err
	}
	market, ok := result.Markets[ticker]
	if !ok {
		return money.Price{}, fmt.Errorf("dydx market %s not found", ticker)
	}
	v, err := strconv.ParseFloat(market.OraclePrice, 64)
	if err != nil {
		return money.Price{}, err
	}
	return money.NewPrice(v)
}

// Run polls every symbol's oracle price at pollInterval until ctx is
// cancelled.
func (s *DydxStream) Run(ctx context.Context, symbols []string, onTick func(symbol string, price money.Price)) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, symbol := range symbols {
				price, err := s.fetchPrice(symbol)
				if err != nil {
					return err
				}
				onTick(symbol, price)
			}
		}
	}
}
