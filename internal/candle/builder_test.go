package candle

import (
	"testing"
	"time"

	"github.com/tradecore/engine/internal/money"
)

func TestBuilderNoCandleBeforeWindowElapses(t *testing.T) {
	b := NewBuilder(time.Minute, 100)
	b.AddPrice("BTC-USD", money.MustPrice(50000))
	if got := b.CandleCount("BTC-USD"); got != 0 {
		t.Fatalf("expected 0 candles, got %d", got)
	}
}

func TestBuilderBuildsCandleFromUpdates(t *testing.T) {
	b := NewBuilder(time.Second, 100)
	base := time.Now()
	clock := base
	b.now = func() time.Time { return clock }

	prices := []float64{100, 105, 95, 102}
	for _, p := range prices {
		b.AddPrice("BTC-USD", money.MustPrice(p))
	}

	// Advance clock past the window so the next AddPrice closes it.
	clock = base.Add(2 * time.Second)
	b.AddPrice("BTC-USD", money.MustPrice(103))

	candles := b.GetCandles("BTC-USD")
	if len(candles) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(candles))
	}
	c := candles[0]
	if c.Open.Float64() != 100 || c.Close.Float64() != 102 {
		t.Errorf("open/close mismatch: open=%v close=%v", c.Open.Float64(), c.Close.Float64())
	}
	if c.High.Float64() != 105 || c.Low.Float64() != 95 {
		t.Errorf("high/low mismatch: high=%v low=%v", c.High.Float64(), c.Low.Float64())
	}
	if c.Volume != 4 {
		t.Errorf("expected volume 4 (tick count), got %v", c.Volume)
	}
}

func TestBuilderTrimsToMaxHistory(t *testing.T) {
	b := NewBuilder(time.Millisecond, 2)
	base := time.Now()
	clock := base
	b.now = func() time.Time { return clock }

	for i := 0; i < 5; i++ {
		b.AddPrice("ETH-USD", money.MustPrice(float64(100+i)))
		clock = clock.Add(2 * time.Millisecond)
		b.AddPrice("ETH-USD", money.MustPrice(float64(100+i)))
	}

	if got := b.CandleCount("ETH-USD"); got > 2 {
		t.Errorf("expected at most 2 candles retained, got %d", got)
	}
}

func TestGetCandlesEmptyForUnknownSymbol(t *testing.T) {
	b := NewBuilder(time.Minute, 100)
	if candles := b.GetCandles("UNKNOWN"); len(candles) != 0 {
		t.Errorf("expected empty slice, got %v", candles)
	}
}

func TestClearSymbol(t *testing.T) {
	b := NewBuilder(time.Millisecond, 100)
	b.AddPrice("BTC-USD", money.MustPrice(1))
	b.ClearSymbol("BTC-USD")
	if got := b.CandleCount("BTC-USD"); got != 0 {
		t.Errorf("expected 0 after clear, got %d", got)
	}
}
