package strategy

import (
	"testing"

	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/money"
)

func uptrendCandles(n int, start float64) []candle.Candle {
	out := make([]candle.Candle, n)
	for i := 0; i < n; i++ {
		p := start + float64(i)
		out[i] = candle.Candle{
			Open:   money.MustPrice(p),
			High:   money.MustPrice(p + 1),
			Low:    money.MustPrice(p - 1),
			Close:  money.MustPrice(p),
			Volume: 10,
		}
	}
	return out
}

func TestFastScalpingNilBelowMinCandles(t *testing.T) {
	s := NewFastScalping()
	if sig := s.GenerateSignal(uptrendCandles(5, 100)); sig != nil {
		t.Errorf("expected nil, got %+v", sig)
	}
}

func TestFastScalpingBuyOnUptrend(t *testing.T) {
	s := NewFastScalping()
	sig := s.GenerateSignal(uptrendCandles(15, 100))
	if sig == nil || sig.Direction != Buy {
		t.Fatalf("expected Buy on sustained uptrend, got %+v", sig)
	}
	if sig.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8, got %v", sig.Confidence)
	}
}

type fixedStrategy struct {
	name string
	min  int
	sig  *TradingSignal
}

func (f fixedStrategy) Name() string                                       { return f.name }
func (f fixedStrategy) MinCandles() int                                    { return f.min }
func (f fixedStrategy) GenerateSignal(_ []candle.Candle) *TradingSignal { return f.sig }

func TestCombinerWeightedAverage(t *testing.T) {
	strategies := []Strategy{
		fixedStrategy{name: "a", sig: &TradingSignal{Direction: Buy, Confidence: 0.8}},
		fixedStrategy{name: "b", sig: &TradingSignal{Direction: Buy, Confidence: 0.6}},
	}
	weights := []float64{1.0, 1.0}
	c := NewCombiner(strategies, weights)

	sig := c.Combine(uptrendCandles(30, 100))
	if sig == nil || sig.Direction != Buy {
		t.Fatalf("expected Buy, got %+v", sig)
	}
	want := (0.8 + 0.6) / 2
	if sig.Confidence != want {
		t.Errorf("expected confidence %v, got %v", want, sig.Confidence)
	}
}

func TestCombinerNoSignalReturnsNil(t *testing.T) {
	strategies := []Strategy{fixedStrategy{name: "a", sig: nil}}
	c := NewCombiner(strategies, []float64{1.0})
	if sig := c.Combine(uptrendCandles(5, 100)); sig != nil {
		t.Errorf("expected nil, got %+v", sig)
	}
}

func TestCombinerDeterministic(t *testing.T) {
	strategies := []Strategy{
		fixedStrategy{name: "a", sig: &TradingSignal{Direction: Sell, Confidence: 0.7}},
	}
	c := NewCombiner(strategies, []float64{1.0})
	candles := uptrendCandles(30, 100)
	first := c.Combine(candles)
	second := c.Combine(candles)
	if *first != *second {
		t.Errorf("expected deterministic output, got %+v vs %+v", first, second)
	}
}

func TestCombinerPanicsOnMismatchedLengths(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for mismatched lengths")
		}
	}()
	NewCombiner([]Strategy{fixedStrategy{name: "a"}}, []float64{1.0, 2.0})
}
