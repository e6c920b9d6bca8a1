package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/resilience"
)

const coinbaseBaseURL = "https://api.exchange.coinbase.com"

// CoinbaseClient is a REST client for Coinbase's legacy Exchange API,
// signed the same way Binance's client signs requests: an HMAC digest over
// the request, carried in a header alongside the key. Coinbase's variant
// additionally requires a passphrase and a base64, not hex, secret and
// signature, and digests timestamp+method+path+body rather than a query
// string.
type CoinbaseClient struct {
	apiKey     string
	secret     []byte
	passphrase string
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
}

// NewCoinbaseClient constructs a CoinbaseClient from legacy API credentials.
// The secret is expected base64-encoded, as Coinbase issues it.
func NewCoinbaseClient(apiKey, secret, passphrase string) (*CoinbaseClient, error) {
	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("coinbase secret is not valid base64: %w", err)
	}
	return &CoinbaseClient{
		apiKey:     apiKey,
		secret:     decoded,
		passphrase: passphrase,
		baseURL:    coinbaseBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "coinbase",
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
			WindowDuration:   time.Minute,
		}),
	}, nil
}

func (c *CoinbaseClient) Name() string { return "coinbase" }

func (c *CoinbaseClient) sign(timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *CoinbaseClient) doRequest(method, path string, body []byte) ([]byte, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("CB-ACCESS-KEY", c.apiKey)
	req.Header.Set("CB-ACCESS-SIGN", c.sign(timestamp, method, path, string(body)))
	req.Header.Set("CB-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("CB-ACCESS-PASSPHRASE", c.passphrase)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("coinbase API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

type coinbaseAccount struct {
	ID        string `json:"id"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
	Hold      string `json:"hold"`
}

type coinbaseOrderRequest struct {
	ClientOID string `json:"client_oid,omitempty"`
	Type      string `json:"type"`
	Side      string `json:"side"`
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Price     string `json:"price,omitempty"`
}

type coinbaseOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func coinbaseProductID(symbol string) string {
	return strings.ToUpper(symbol)
}

func (c *CoinbaseClient) PlaceOrder(ctx context.Context, order Order) (string, error) {
	req := coinbaseOrderRequest{
		Side:      order.Side.String(),
		ProductID: coinbaseProductID(order.Symbol),
		Size:      strconv.FormatFloat(order.Quantity.Float64(), 'f', -1, 64),
	}
	if order.Type == Limit {
		req.Type = "limit"
		if order.Price == nil {
			return "", fmt.Errorf("limit order for %s missing price", order.Symbol)
		}
		req.Price = strconv.FormatFloat(order.Price.Float64(), 'f', -1, 64)
	} else {
		req.Type = "market"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	var result coinbaseOrder
	err = c.breaker.Call(func() error {
		data, callErr := c.doRequest(http.MethodPost, "/orders", body)
		if callErr != nil {
			return callErr
		}
		return json.Unmarshal(data, &result)
	})
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

func (c *CoinbaseClient) CancelOrder(ctx context.Context, orderID string) error {
	return c.breaker.Call(func() error {
		_, callErr := c.doRequest(http.MethodDelete, "/orders/"+orderID, nil)
		return callErr
	})
}

func coinbaseStatus(status string) Status {
	switch status {
	case "open", "pending":
		return StatusPending
	case "active":
		return StatusPartiallyFilled
	case "done", "settled":
		return StatusFilled
	case "rejected":
		return StatusRejected
	default:
		return StatusUnknown
	}
}

func (c *CoinbaseClient) GetOrderStatus(ctx context.Context, orderID string) (Status, error) {
	var result coinbaseOrder
	err := c.breaker.Call(func() error {
		data, callErr := c.doRequest(http.MethodGet, "/orders/"+orderID, nil)
		if callErr != nil {
			return callErr
		}
		return json.Unmarshal(data, &result)
	})
	if err != nil {
		return StatusUnknown, err
	}
	return coinbaseStatus(result.Status), nil
}

func (c *CoinbaseClient) GetBalance(ctx context.Context, currency string) ([]BalanceInfo, error) {
	var accounts []coinbaseAccount
	err := c.breaker.Call(func() error {
		data, callErr := c.doRequest(http.MethodGet, "/accounts", nil)
		if callErr != nil {
			return callErr
		}
		return json.Unmarshal(data, &accounts)
	})
	if err != nil {
		return nil, err
	}

	out := make([]BalanceInfo, 0, len(accounts))
	for _, a := range accounts {
		if currency != "" && a.Currency != currency {
			continue
		}
		total, err := parseCoinbaseAmount(a.Balance)
		if err != nil {
			continue
		}
		available, err := parseCoinbaseAmount(a.Available)
		if err != nil {
			continue
		}
		locked, err := parseCoinbaseAmount(a.Hold)
		if err != nil {
			continue
		}
		out = append(out, BalanceInfo{
			Currency:  a.Currency,
			Total:     total,
			Available: available,
			Locked:    locked,
			Timestamp: time.Now(),
		})
	}
	return out, nil
}

func parseCoinbaseAmount(s string) (money.Price, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return money.Price{}, err
	}
	return money.NewPrice(v)
}

func (c *CoinbaseClient) IsHealthy(ctx context.Context) bool {
	return c.breaker.Call(func() error {
		_, err := c.doRequest(http.MethodGet, "/time", nil)
		return err
	}) == nil
}
