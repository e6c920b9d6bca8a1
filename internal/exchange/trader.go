package exchange

import (
	"context"
	"fmt"
	"regexp"

	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/strategy"
)

var traderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// ErrInvalidTraderID is returned when a Trader id fails the
// alphanumeric/_-/<=100-char/non-empty discipline.
var ErrInvalidTraderID = fmt.Errorf("trader id must be non-empty, alphanumeric/_-, and at most 100 characters")

// ErrExchangeNotFound is returned by operations that reference an exchange
// the Trader doesn't hold a client for.
var ErrExchangeNotFound = fmt.Errorf("exchange not registered with this trader")

// Trader is a thin aggregate over one strategy and a set of exchange
// clients, with a single active exchange orders route through.
type Trader struct {
	ID              string
	Strategy        strategy.Strategy
	MaxPositionSize float64
	MinConfidence   float64

	exchanges      map[string]Client
	activeExchange string
}

// NewTrader constructs a Trader, validating its id per spec.
func NewTrader(id string, strat strategy.Strategy, maxPositionSize, minConfidence float64) (*Trader, error) {
	if !traderIDPattern.MatchString(id) {
		return nil, ErrInvalidTraderID
	}
	return &Trader{
		ID:              id,
		Strategy:        strat,
		MaxPositionSize: maxPositionSize,
		MinConfidence:   minConfidence,
		exchanges:       make(map[string]Client),
	}, nil
}

// AddExchange registers a client under its own Name(). If no active
// exchange is set yet, this one becomes active.
func (t *Trader) AddExchange(client Client) {
	t.exchanges[client.Name()] = client
	if t.activeExchange == "" {
		t.activeExchange = client.Name()
	}
}

// RemoveExchange drops a client. If it was the active exchange, a
// replacement is chosen arbitrarily from what remains, or none if empty.
func (t *Trader) RemoveExchange(name string) {
	delete(t.exchanges, name)
	if t.activeExchange == name {
		t.activeExchange = ""
		for remaining := range t.exchanges {
			t.activeExchange = remaining
			break
		}
	}
}

// SetActiveExchange fails if name isn't a registered exchange.
func (t *Trader) SetActiveExchange(name string) error {
	if _, ok := t.exchanges[name]; !ok {
		return ErrExchangeNotFound
	}
	t.activeExchange = name
	return nil
}

// ActiveExchange returns the name of the currently active exchange, or ""
// if none is set.
func (t *Trader) ActiveExchange() string { return t.activeExchange }

func (t *Trader) active() (Client, error) {
	client, ok := t.exchanges[t.activeExchange]
	if !ok {
		return nil, ErrExchangeNotFound
	}
	return client, nil
}

// ExecuteSignal gates on MinConfidence, then places a market order for
// quantity of symbol on the active exchange. It takes no price, and the
// order it places carries none. A Hold signal places no order.
func (t *Trader) ExecuteSignal(ctx context.Context, signal strategy.TradingSignal, symbol string, quantity money.Quantity) (orderID string, err error) {
	if signal.Direction == strategy.Hold {
		return "", nil
	}
	if signal.Confidence < t.MinConfidence {
		return "", nil
	}

	client, err := t.active()
	if err != nil {
		return "", err
	}

	side := SideBuy
	if signal.Direction == strategy.Sell {
		side = SideSell
	}

	return client.PlaceOrder(ctx, Order{
		Symbol:   symbol,
		Side:     side,
		Type:     Market,
		Quantity: quantity,
	})
}

// RouteOrder places order on the active exchange.
func (t *Trader) RouteOrder(ctx context.Context, order Order) (string, error) {
	client, err := t.active()
	if err != nil {
		return "", err
	}
	return client.PlaceOrder(ctx, order)
}

// GetBalance queries the active exchange for currency's balance.
func (t *Trader) GetBalance(ctx context.Context, currency string) ([]BalanceInfo, error) {
	client, err := t.active()
	if err != nil {
		return nil, err
	}
	return client.GetBalance(ctx, currency)
}

// CheckHealth fans out IsHealthy to every registered exchange.
func (t *Trader) CheckHealth(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(t.exchanges))
	for name, client := range t.exchanges {
		out[name] = client.IsHealthy(ctx)
	}
	return out
}
