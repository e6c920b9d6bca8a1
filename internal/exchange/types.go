// Package exchange defines the Exchange Client capability every connector
// implements, and the Trader aggregate that routes orders and balance
// queries through its single active exchange client.
package exchange

import (
	"context"
	"time"

	"github.com/tradecore/engine/internal/money"
)

// OrderSide is the direction of an order.
type OrderSide int

const (
	SideBuy OrderSide = iota
	SideSell
)

func (s OrderSide) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

// OrderType distinguishes market and limit orders.
type OrderType int

const (
	Market OrderType = iota
	Limit
)

// Order is an instruction to buy or sell a quantity of a symbol, optionally
// at a limit price. Invariant: Limit orders must carry a price.
type Order struct {
	ID       string
	Symbol   string
	Side     OrderSide
	Type     OrderType
	Price    *money.Price // required iff Type == Limit
	Quantity money.Quantity
}

// Status is the lifecycle state of a placed order.
type Status int

const (
	StatusUnknown Status = iota
	StatusPending
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusRejected
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	case StatusRejected:
		return "rejected"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// BalanceInfo is a single currency's balance snapshot. Invariant:
// |Total - (Available+Locked)| <= 1e-9.
type BalanceInfo struct {
	Currency  string
	Total     money.Price
	Available money.Price
	Locked    money.Price
	Timestamp time.Time
}

// Client is the capability an exchange connector implements. The core
// assumes only these semantics; wire protocol, signing, and framing are the
// connector's business.
type Client interface {
	Name() string
	PlaceOrder(ctx context.Context, order Order) (orderID string, err error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrderStatus(ctx context.Context, orderID string) (Status, error)
	GetBalance(ctx context.Context, currency string) ([]BalanceInfo, error)
	IsHealthy(ctx context.Context) bool
}
