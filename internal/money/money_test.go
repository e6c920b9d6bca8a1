package money

import (
	"math"
	"testing"
)

func TestNewPriceRejectsInvalid(t *testing.T) {
	cases := []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1.0}
	for _, c := range cases {
		if _, err := NewPrice(c); err == nil {
			t.Errorf("NewPrice(%v) expected error, got nil", c)
		}
	}
}

func TestNewPriceAcceptsZeroAndPositive(t *testing.T) {
	if _, err := NewPrice(0); err != nil {
		t.Errorf("NewPrice(0) unexpected error: %v", err)
	}
	if _, err := NewPrice(50000.0); err != nil {
		t.Errorf("NewPrice(50000) unexpected error: %v", err)
	}
}

func TestNewQuantityRejectsNegative(t *testing.T) {
	if _, err := NewQuantity(-0.0001); err == nil {
		t.Error("expected error for negative quantity")
	}
}

func TestLongPnL(t *testing.T) {
	qty := MustQuantity(0.01)
	entry := MustPrice(50000)
	current := MustPrice(51000)
	pnl := LongPnL(qty, entry, current)
	if math.Abs(pnl.Float64()-10.0) > 1e-4 {
		t.Errorf("expected ~10.0, got %v", pnl.Float64())
	}
}

func TestShortPnL(t *testing.T) {
	qty := MustQuantity(0.01)
	entry := MustPrice(50000)
	current := MustPrice(49000)
	pnl := ShortPnL(qty, entry, current)
	if math.Abs(pnl.Float64()-10.0) > 1e-4 {
		t.Errorf("expected ~10.0, got %v", pnl.Float64())
	}
}

func TestNotional(t *testing.T) {
	qty := MustQuantity(0.01)
	price := MustPrice(50000)
	if got := Notional(qty, price); math.Abs(got-500.0) > 1e-9 {
		t.Errorf("expected 500.0, got %v", got)
	}
}
