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

// CoinbaseStream is a Stream implementation for Coinbase, polling the
// public ticker REST endpoint rather than Binance's push websocket: the
// legacy Exchange API used for order placement exposes no equivalent
// public streaming endpoint in this module's scope, so CoinbaseStream
// follows the polling idiom instead, at pollInterval.
type CoinbaseStream struct {
	baseURL      string
	pollInterval time.Duration
	httpClient   *http.Client
}

// NewCoinbaseStream constructs a CoinbaseStream polling every interval.
func NewCoinbaseStream(interval time.Duration) *CoinbaseStream {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &CoinbaseStream{
		baseURL:      "https://api.exchange.coinbase.com",
		pollInterval: interval,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *CoinbaseStream) Name() string { return "coinbase" }

type coinbaseTicker struct {
	Price string `json:"price"`
}

func (s *CoinbaseStream) fetchPrice(symbol string) (money.Price, error) {
	req, err := http.NewRequest(http.MethodGet, s.baseURL+"/products/"+symbol+"/ticker", nil)
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
		return money.Price{}, fmt.Errorf("coinbase ticker error (status %d): %s", resp.StatusCode, string(body))
	}
	var ticker coinbaseTicker
	if err := json.Unmarshal(body, &ticker); err != nil {
		return money.Price{}, err
	}
	v, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return money.Price{}, err
	}
	return money.NewPrice(v)
}

// Run polls every symbol's ticker at pollInterval until ctx is cancelled.
func (s *CoinbaseStream) Run(ctx context.Context, symbols []string, onTick func(symbol string, price money.Price)) error {
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
