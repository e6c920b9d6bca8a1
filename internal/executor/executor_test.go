package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/tradecore/engine/internal/exchange"
	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/strategy"
	"github.com/tradecore/engine/internal/tradeerrors"
)

type fakeBalance struct {
	available float64
	err       error
}

func (f *fakeBalance) GetBalance(ctx context.Context, currency string) ([]exchange.BalanceInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	avail, _ := money.NewPrice(f.available)
	return []exchange.BalanceInfo{{Currency: currency, Available: avail}}, nil
}

type fakePlacer struct {
	active  string
	orderID string
	err     error
	calls   int
}

func (f *fakePlacer) ActiveExchange() string { return f.active }
func (f *fakePlacer) RouteOrder(ctx context.Context, order exchange.Order) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.orderID, nil
}

func newExecutor(cfg Config, bal BalanceSource, placer OrderPlacer) *Executor {
	return New(cfg, bal, placer, nil, zerolog.Nop())
}

func baseConfig() Config {
	return Config{
		Symbols:             []string{"BTC-USD"},
		ConfidenceThreshold: 0.5,
		MaxPerHour:          10,
		MaxPerDay:           50,
		PortfolioPercentage: 0.05,
		MaxOrderSize:        1000,
		MinOrderSize:        1,
		MinQuantity:         0.0001,
		SlippagePct:         0.02,
		MaxRetryAttempts:    3,
		RetryDelay:          time.Millisecond,
	}
}

func price(v float64) money.Price {
	p, _ := money.NewPrice(v)
	return p
}

func TestExecuteSignalRejectsUnlistedSymbol(t *testing.T) {
	e := newExecutor(baseConfig(), &fakeBalance{available: 10000}, &fakePlacer{active: "binance", orderID: "o1"})
	_, err := e.ExecuteSignal(context.Background(), "ETH-USD", &strategy.TradingSignal{Direction: strategy.Buy, Confidence: 0.9}, price(50000))
	var want *tradeerrors.OrderValidationFailed
	if !errors.As(err, &want) {
		t.Fatalf("expected OrderValidationFailed, got %v", err)
	}
}

func TestExecuteSignalHoldIsNonError(t *testing.T) {
	e := newExecutor(baseConfig(), &fakeBalance{available: 10000}, &fakePlacer{active: "binance", orderID: "o1"})
	res, err := e.ExecuteSignal(context.Background(), "BTC-USD", &strategy.TradingSignal{Direction: strategy.Hold, Confidence: 0.9}, price(50000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderID != "" {
		t.Fatalf("expected no order id for HOLD, got %q", res.OrderID)
	}
}

func TestExecuteSignalLowConfidenceIsNonError(t *testing.T) {
	e := newExecutor(baseConfig(), &fakeBalance{available: 10000}, &fakePlacer{active: "binance", orderID: "o1"})
	res, err := e.ExecuteSignal(context.Background(), "BTC-USD", &strategy.TradingSignal{Direction: strategy.Buy, Confidence: 0.1}, price(50000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderID != "" {
		t.Fatalf("expected no order placed for low confidence")
	}
}

func TestExecuteSignalPlacesOrderAndCaches(t *testing.T) {
	placer := &fakePlacer{active: "binance", orderID: "order-1"}
	e := newExecutor(baseConfig(), &fakeBalance{available: 10000}, placer)

	signal := &strategy.TradingSignal{Direction: strategy.Buy, Confidence: 0.9}
	res, err := e.ExecuteSignal(context.Background(), "BTC-USD", signal, price(50000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderID != "order-1" {
		t.Fatalf("expected order-1, got %q", res.OrderID)
	}

	// identical signal is deduplicated
	res2, err := e.ExecuteSignal(context.Background(), "BTC-USD", signal, price(50000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res2.OrderID != "" {
		t.Fatalf("expected dedup to suppress a second order, got %q", res2.OrderID)
	}
	if placer.calls != 1 {
		t.Fatalf("expected exactly one placement call, got %d", placer.calls)
	}
}

func TestExecuteSignalTraderUnavailable(t *testing.T) {
	e := newExecutor(baseConfig(), &fakeBalance{available: 10000}, &fakePlacer{active: ""})
	_, err := e.ExecuteSignal(context.Background(), "BTC-USD", &strategy.TradingSignal{Direction: strategy.Buy, Confidence: 0.9}, price(50000))
	var want *tradeerrors.TraderUnavailable
	if !errors.As(err, &want) {
		t.Fatalf("expected TraderUnavailable, got %v", err)
	}
}

func TestExecuteSignalOrderTooSmall(t *testing.T) {
	cfg := baseConfig()
	cfg.MinOrderSize = 10000
	e := newExecutor(cfg, &fakeBalance{available: 100}, &fakePlacer{active: "binance", orderID: "o1"})
	_, err := e.ExecuteSignal(context.Background(), "BTC-USD", &strategy.TradingSignal{Direction: strategy.Buy, Confidence: 0.9}, price(50000))
	var want *tradeerrors.OrderTooSmall
	if !errors.As(err, &want) {
		t.Fatalf("expected OrderTooSmall, got %v", err)
	}
}

func TestExecuteSignalRetriesTransientThenSucceeds(t *testing.T) {
	placer := &retryPlacer{failTimes: 2, orderID: "order-2", active: "binance"}
	cfg := baseConfig()
	cfg.RetryDelay = time.Millisecond
	e := newExecutor(cfg, &fakeBalance{available: 10000}, placer)

	res, err := e.ExecuteSignal(context.Background(), "BTC-USD", &strategy.TradingSignal{Direction: strategy.Buy, Confidence: 0.9}, price(50000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderID != "order-2" {
		t.Fatalf("expected order-2 after retries, got %q", res.OrderID)
	}
	if placer.attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", placer.attempts)
	}
}

type retryPlacer struct {
	active    string
	failTimes int
	attempts  int
	orderID   string
}

func (p *retryPlacer) ActiveExchange() string { return p.active }
func (p *retryPlacer) RouteOrder(ctx context.Context, order exchange.Order) (string, error) {
	p.attempts++
	if p.attempts <= p.failTimes {
		return "", &tradeerrors.NetworkTimeout{Operation: "place_order", TimeoutMS: 500}
	}
	return p.orderID, nil
}

func TestExecuteSignalBalanceFetchFailedDoesNotCache(t *testing.T) {
	e := newExecutor(baseConfig(), &fakeBalance{err: errors.New("exchange unreachable")}, &fakePlacer{active: "binance"})
	_, err := e.ExecuteSignal(context.Background(), "BTC-USD", &strategy.TradingSignal{Direction: strategy.Buy, Confidence: 0.9}, price(50000))
	var want *tradeerrors.BalanceFetchFailed
	if !errors.As(err, &want) {
		t.Fatalf("expected BalanceFetchFailed, got %v", err)
	}
	if _, cached := e.lastSignal["BTC-USD"]; cached {
		t.Fatal("expected no cached signal after a balance fetch failure")
	}
}
