// Package executor implements the Order Executor: turns a TradingSignal for
// a symbol into a placed order, subject to whitelists, confidence, balance,
// leverage, position limits, sizing, rate limits, and slippage protection.
package executor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tradecore/engine/internal/exchange"
	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/strategy"
	"github.com/tradecore/engine/internal/tradeerrors"
)

// BalanceSource is the balance capability the executor reads from before
// sizing an order.
type BalanceSource interface {
	GetBalance(ctx context.Context, currency string) ([]exchange.BalanceInfo, error)
}

// OrderPlacer is the exchange placement capability. ActiveExchange returning
// "" signals no trader/exchange is currently available to place orders.
type OrderPlacer interface {
	RouteOrder(ctx context.Context, order exchange.Order) (string, error)
	ActiveExchange() string
}

// PositionLimiter is asked to reserve headroom before an order is placed;
// it performs the same checks Position Manager's open() would make, without
// mutating state.
type PositionLimiter interface {
	ReserveHeadroom(symbol string, notional float64) error
}

// Config holds executor-wide configuration, one instance per Trader.
type Config struct {
	Symbols             []string
	ConfidenceThreshold float64
	MaxPerHour          int
	MaxPerDay           int
	PortfolioPercentage float64
	MaxOrderSize        float64
	MinOrderSize        float64
	MinQuantity         float64
	SlippagePct         float64
	MaxRetryAttempts    int
	RetryDelay          time.Duration
	MaxLeverage         float64 // 0 disables the leverage check
	RequiredLeverage    float64
	DefaultQuoteCurrency string
}

type cachedSignal struct {
	direction  strategy.Direction
	confidence float64
}

// Executor is the order execution pipeline for a single Trader.
type Executor struct {
	cfg     Config
	balance BalanceSource
	placer  OrderPlacer
	limiter PositionLimiter
	logger  zerolog.Logger
	now     func() time.Time

	mu           sync.Mutex
	lastSignal   map[string]cachedSignal
	tradeHistory []time.Time
}

// New constructs an Executor.
func New(cfg Config, balance BalanceSource, placer OrderPlacer, limiter PositionLimiter, logger zerolog.Logger) *Executor {
	if cfg.DefaultQuoteCurrency == "" {
		cfg.DefaultQuoteCurrency = "USD"
	}
	return &Executor{
		cfg:        cfg,
		balance:    balance,
		placer:     placer,
		limiter:    limiter,
		logger:     logger,
		now:        time.Now,
		lastSignal: make(map[string]cachedSignal),
	}
}

// Result is the outcome of ExecuteSignal when no order-placement error
// occurred: filtering outcomes and successful placements both produce one.
type Result struct {
	OrderID string
	Message string
}

func (e *Executor) whitelisted(symbol string) bool {
	for _, s := range e.cfg.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

func quoteCurrency(symbol, fallback string) string {
	if i := strings.LastIndex(symbol, "-"); i >= 0 && i+1 < len(symbol) {
		return symbol[i+1:]
	}
	return fallback
}

// ExecuteSignal runs the 13-step algorithm in spec §4.5 against one symbol's
// signal at the given current price.
func (e *Executor) ExecuteSignal(ctx context.Context, symbol string, signal *strategy.TradingSignal, currentPrice money.Price) (*Result, error) {
	// 1. Symbol whitelist.
	if !e.whitelisted(symbol) {
		return nil, &tradeerrors.OrderValidationFailed{Symbol: symbol, Reason: "not in whitelist"}
	}

	// 2. Trader availability.
	if e.placer == nil || e.placer.ActiveExchange() == "" {
		return nil, &tradeerrors.TraderUnavailable{}
	}

	// 3. Direction.
	if signal.Direction == strategy.Hold {
		return &Result{Message: "no order executed - signal is HOLD"}, nil
	}

	// 4. Confidence gate (Minor, non-error success).
	if signal.Confidence < e.cfg.ConfidenceThreshold {
		return &Result{Message: "signal confidence too low for execution"}, nil
	}

	e.mu.Lock()
	// 5. Signal deduplication (Minor, non-error success).
	if cached, ok := e.lastSignal[symbol]; ok &&
		cached.direction == signal.Direction && cached.confidence == signal.Confidence {
		e.mu.Unlock()
		return &Result{Message: "signal already executed"}, nil
	}

	// 6. Rate limits.
	now := e.now()
	hourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)
	hourCount, dayCount := 0, 0
	for _, t := range e.tradeHistory {
		if t.After(dayAgo) {
			dayCount++
			if t.After(hourAgo) {
				hourCount++
			}
		}
	}
	if hourCount >= e.cfg.MaxPerHour {
		e.mu.Unlock()
		return nil, &tradeerrors.RateLimitExceeded{Kind: tradeerrors.RateLimitHourly, Count: hourCount, Ceiling: e.cfg.MaxPerHour}
	}
	if dayCount >= e.cfg.MaxPerDay {
		e.mu.Unlock()
		return nil, &tradeerrors.RateLimitExceeded{Kind: tradeerrors.RateLimitDaily, Count: dayCount, Ceiling: e.cfg.MaxPerDay}
	}
	e.mu.Unlock()

	// 7. Balance fetch.
	quote := quoteCurrency(symbol, e.cfg.DefaultQuoteCurrency)
	balances, err := e.balance.GetBalance(ctx, quote)
	if err != nil {
		return nil, &tradeerrors.BalanceFetchFailed{Exchange: "active", Reason: err.Error()}
	}
	var available float64
	for _, b := range balances {
		if b.Currency == quote {
			available = b.Available.Float64()
			break
		}
	}

	// 8. Leverage check.
	if e.cfg.MaxLeverage > 0 {
		availableLeverage := e.cfg.MaxLeverage - 0 // current leverage tracked outside the executor
		if e.cfg.RequiredLeverage > availableLeverage {
			return nil, &tradeerrors.InsufficientLeverage{Required: e.cfg.RequiredLeverage, Available: availableLeverage}
		}
	}

	// 9. Position sizing.
	price := currentPrice.Float64()
	notional := available * e.cfg.PortfolioPercentage
	if e.cfg.MaxOrderSize > 0 && notional > e.cfg.MaxOrderSize {
		notional = e.cfg.MaxOrderSize
	}
	if notional < e.cfg.MinOrderSize {
		return nil, &tradeerrors.OrderTooSmall{Symbol: symbol, Notional: notional, MinOrderSize: e.cfg.MinOrderSize}
	}
	quantity := notional / price
	if quantity < e.cfg.MinQuantity {
		return nil, &tradeerrors.BelowMinQuantity{Symbol: symbol, Quantity: quantity, MinQuantity: e.cfg.MinQuantity}
	}

	// 10. Slippage protection.
	side := exchange.SideBuy
	guardPrice := price * (1 + e.cfg.SlippagePct)
	if signal.Direction == strategy.Sell {
		side = exchange.SideSell
		guardPrice = price * (1 - e.cfg.SlippagePct)
	}

	// 11. Position-limit precheck.
	if e.limiter != nil {
		if err := e.limiter.ReserveHeadroom(symbol, notional); err != nil {
			return nil, err
		}
	}

	guard, err := money.NewPrice(guardPrice)
	if err != nil {
		return nil, &tradeerrors.OrderValidationFailed{Symbol: symbol, Reason: "computed guard price is not finite"}
	}
	qty, err := money.NewQuantity(quantity)
	if err != nil {
		return nil, &tradeerrors.OrderValidationFailed{Symbol: symbol, Reason: "computed quantity is not finite"}
	}
	order := exchange.Order{
		Symbol:   symbol,
		Side:     side,
		Type:     exchange.Market,
		Price:    &guard,
		Quantity: qty,
	}

	// 12. Placement, with retry for transient failures only.
	orderID, err := e.placeWithRetry(ctx, order)
	if err != nil {
		e.mu.Lock()
		delete(e.lastSignal, symbol)
		e.mu.Unlock()
		return nil, err
	}

	// 13. Success.
	e.mu.Lock()
	e.lastSignal[symbol] = cachedSignal{direction: signal.Direction, confidence: signal.Confidence}
	e.tradeHistory = append(e.tradeHistory, now)
	e.tradeHistory = pruneOlderThan(e.tradeHistory, dayAgo)
	e.mu.Unlock()

	e.logger.Info().Str("symbol", symbol).Str("order_id", orderID).
		Float64("confidence", signal.Confidence).Msg("order executed")

	return &Result{OrderID: orderID, Message: "order executed"}, nil
}

func (e *Executor) placeWithRetry(ctx context.Context, order exchange.Order) (string, error) {
	attempts := e.cfg.MaxRetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		orderID, err := e.placer.RouteOrder(ctx, order)
		if err == nil {
			return orderID, nil
		}
		lastErr = err
		if !isTransient(err) {
			return "", err
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(e.cfg.RetryDelay):
			}
		}
	}
	return "", lastErr
}

func isTransient(err error) bool {
	switch err.(type) {
	case *tradeerrors.NetworkTimeout, *tradeerrors.ExchangeConnectionLost, *tradeerrors.CircuitOpen:
		return true
	default:
		return false
	}
}

func pruneOlderThan(history []time.Time, cutoff time.Time) []time.Time {
	kept := history[:0]
	for _, t := range history {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
