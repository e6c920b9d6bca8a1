package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tradecore/engine/internal/binance"
	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/resilience"
)

// BinanceClient adapts the teacher's signed REST binance.Client to the
// Client capability, wrapping outbound calls in a CircuitBreaker per
// spec.md §4.9.
type BinanceClient struct {
	rest    *binance.Client
	breaker *resilience.CircuitBreaker
}

// NewBinanceClient constructs a BinanceClient from Binance API credentials.
func NewBinanceClient(apiKey, secretKey string, testnet bool) *BinanceClient {
	rest := binance.NewClient(&binance.Config{
		APIKey:    apiKey,
		SecretKey: secretKey,
		Testnet:   testnet,
		Timeout:   10 * time.Second,
	})
	return &BinanceClient{
		rest: rest,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "binance",
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
			WindowDuration:   time.Minute,
		}),
	}
}

func (c *BinanceClient) Name() string { return "binance" }

// encodeOrderID packs symbol and Binance's numeric order id into the
// string id Client's contract requires, since Binance's order lookups are
// always scoped by symbol.
func encodeOrderID(symbol string, id int64) string {
	return fmt.Sprintf("%s:%d", symbol, id)
}

func decodeOrderID(orderID string) (symbol string, id int64, err error) {
	parts := strings.SplitN(orderID, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("malformed binance order id %q", orderID)
	}
	id, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed binance order id %q: %w", orderID, err)
	}
	return parts[0], id, nil
}

func toBinanceSide(side OrderSide) binance.OrderSide {
	if side == SideSell {
		return binance.SideSell
	}
	return binance.SideBuy
}

func fromBinanceStatus(status binance.OrderStatus) Status {
	switch status {
	case binance.OrderStatusNew:
		return StatusPending
	case binance.OrderStatusPartiallyFilled:
		return StatusPartiallyFilled
	case binance.OrderStatusFilled:
		return StatusFilled
	case binance.OrderStatusCanceled, binance.OrderStatusPendingCancel:
		return StatusCancelled
	case binance.OrderStatusRejected:
		return StatusRejected
	case binance.OrderStatusExpired:
		return StatusExpired
	default:
		return StatusUnknown
	}
}

func (c *BinanceClient) PlaceOrder(ctx context.Context, order Order) (string, error) {
	req := binance.OrderRequest{
		Symbol:   order.Symbol,
		Side:     toBinanceSide(order.Side),
		Quantity: order.Quantity.Float64(),
	}
	if order.Type == Limit {
		req.Type = binance.OrderTypeLimit
		req.TimeInForce = binance.TimeInForceGTC
		if order.Price == nil {
			return "", fmt.Errorf("limit order for %s missing price", order.Symbol)
		}
		req.Price = order.Price.Float64()
	} else {
		req.Type = binance.OrderTypeMarket
	}

	var result *binance.Order
	err := c.breaker.Call(func() error {
		var callErr error
		result, callErr = c.rest.CreateOrder(req)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return encodeOrderID(order.Symbol, result.OrderID), nil
}

func (c *BinanceClient) CancelOrder(ctx context.Context, orderID string) error {
	symbol, id, err := decodeOrderID(orderID)
	if err != nil {
		return err
	}
	return c.breaker.Call(func() error {
		_, callErr := c.rest.CancelOrder(symbol, id)
		return callErr
	})
}

func (c *BinanceClient) GetOrderStatus(ctx context.Context, orderID string) (Status, error) {
	symbol, id, err := decodeOrderID(orderID)
	if err != nil {
		return StatusUnknown, err
	}
	var result *binance.Order
	err = c.breaker.Call(func() error {
		var callErr error
		result, callErr = c.rest.GetOrder(symbol, id)
		return callErr
	})
	if err != nil {
		return StatusUnknown, err
	}
	return fromBinanceStatus(result.Status), nil
}

func (c *BinanceClient) GetBalance(ctx context.Context, currency string) ([]BalanceInfo, error) {
	var account *binance.Account
	err := c.breaker.Call(func() error {
		var callErr error
		account, callErr = c.rest.GetAccount()
		return callErr
	})
	if err != nil {
		return nil, err
	}

	out := make([]BalanceInfo, 0, len(account.Balances))
	for _, b := range account.Balances {
		if currency != "" && b.Asset != currency {
			continue
		}
		total, err := money.NewPrice(b.Free + b.Locked)
		if err != nil {
			continue
		}
		available, err := money.NewPrice(b.Free)
		if err != nil {
			continue
		}
		locked, err := money.NewPrice(b.Locked)
		if err != nil {
			continue
		}
		out = append(out, BalanceInfo{
			Currency:  b.Asset,
			Total:     total,
			Available: available,
			Locked:    locked,
			Timestamp: time.Now(),
		})
	}
	return out, nil
}

func (c *BinanceClient) IsHealthy(ctx context.Context) bool {
	return c.breaker.Call(c.rest.Ping) == nil
}
