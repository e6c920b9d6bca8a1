package position

import (
	"testing"

	"github.com/tradecore/engine/internal/money"
)

func newManager(maxPerSymbol, maxTotal int, maxExposure, portfolioValue float64) *Manager {
	return NewManager(Limits{
		MaxPerSymbol:         maxPerSymbol,
		MaxTotal:             maxTotal,
		MaxPortfolioExposure: maxExposure,
	}, portfolioValue)
}

func pct(v float64) *float64 { return &v }

func TestOpenComputesStopLossAndTakeProfitForLong(t *testing.T) {
	m := newManager(5, 10, 1.0, 100000)
	id, err := m.Open("BTC-USD", Long, money.MustQuantity(1), money.MustPrice(100), pct(0.1), pct(0.2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := m.Get(id)
	if !ok {
		t.Fatal("expected position to be stored")
	}
	if p.StopLossPrice.Float64() != 90 {
		t.Errorf("expected SL 90, got %v", p.StopLossPrice.Float64())
	}
	if p.TakeProfitPrice.Float64() != 120 {
		t.Errorf("expected TP 120, got %v", p.TakeProfitPrice.Float64())
	}
}

func TestOpenComputesStopLossAndTakeProfitForShort(t *testing.T) {
	m := newManager(5, 10, 1.0, 100000)
	id, err := m.Open("BTC-USD", Short, money.MustQuantity(1), money.MustPrice(100), pct(0.1), pct(0.2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, _ := m.Get(id)
	if p.StopLossPrice.Float64() != 110 {
		t.Errorf("expected SL 110, got %v", p.StopLossPrice.Float64())
	}
	if p.TakeProfitPrice.Float64() != 80 {
		t.Errorf("expected TP 80, got %v", p.TakeProfitPrice.Float64())
	}
}

func TestOpenRejectsOverPerSymbolLimit(t *testing.T) {
	m := newManager(1, 10, 1.0, 100000)
	if _, err := m.Open("BTC-USD", Long, money.MustQuantity(1), money.MustPrice(100), nil, nil); err != nil {
		t.Fatalf("unexpected error on first open: %v", err)
	}
	_, err := m.Open("BTC-USD", Long, money.MustQuantity(1), money.MustPrice(100), nil, nil)
	if err == nil {
		t.Fatal("expected per-symbol limit error")
	}
	if m.Count() != 1 {
		t.Fatalf("expected state untouched by failed open, got count %d", m.Count())
	}
}

func TestOpenRejectsInsufficientCash(t *testing.T) {
	m := newManager(5, 10, 1.0, 1000)
	_, err := m.Open("BTC-USD", Long, money.MustQuantity(1), money.MustPrice(50000), nil, nil)
	if err == nil {
		t.Fatal("expected insufficient balance error")
	}
	if m.Count() != 0 {
		t.Fatal("expected state untouched")
	}
}

func TestCloseWithCurrentPriceComputesPnL(t *testing.T) {
	m := newManager(5, 10, 1.0, 100000)
	id, _ := m.Open("BTC-USD", Long, money.MustQuantity(1), money.MustPrice(100), nil, nil)
	if err := m.UpdatePrice(id, money.MustPrice(110)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pnl, err := m.Close(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pnl.Float64() != 10 {
		t.Errorf("expected PnL 10, got %v", pnl.Float64())
	}
}

func TestCloseWithoutCurrentPriceIsPermissive(t *testing.T) {
	m := newManager(5, 10, 1.0, 100000)
	id, _ := m.Open("BTC-USD", Long, money.MustQuantity(1), money.MustPrice(100), nil, nil)
	pnl, err := m.Close(id)
	if err != nil {
		t.Fatalf("expected permissive zero-PnL close, got error: %v", err)
	}
	if pnl.Float64() != 0 {
		t.Errorf("expected zero PnL, got %v", pnl.Float64())
	}
}

func TestCheckTriggersFiresStopLossForLong(t *testing.T) {
	m := newManager(5, 10, 1.0, 100000)
	id, _ := m.Open("BTC-USD", Long, money.MustQuantity(1), money.MustPrice(100), pct(0.1), nil)
	m.UpdatePrice(id, money.MustPrice(85))

	events := m.CheckTriggers()
	if len(events) != 1 || events[0].Trigger != TriggerStopLoss {
		t.Fatalf("expected one stop_loss trigger, got %+v", events)
	}
}

func TestCheckTriggersFiresTakeProfitForShort(t *testing.T) {
	m := newManager(5, 10, 1.0, 100000)
	id, _ := m.Open("BTC-USD", Short, money.MustQuantity(1), money.MustPrice(100), nil, pct(0.2))
	m.UpdatePrice(id, money.MustPrice(75))

	events := m.CheckTriggers()
	if len(events) != 1 || events[0].Trigger != TriggerTakeProfit {
		t.Fatalf("expected one take_profit trigger, got %+v", events)
	}
}

func TestReserveHeadroomDoesNotMutateState(t *testing.T) {
	m := newManager(5, 10, 1.0, 100000)
	if err := m.ReserveHeadroom("BTC-USD", 5000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Count() != 0 {
		t.Fatal("ReserveHeadroom must not create a position")
	}
}
