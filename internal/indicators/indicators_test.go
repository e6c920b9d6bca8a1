package indicators

import (
	"math"
	"testing"
)

func closesApprox(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestEMAStartsAtPeriodMinusOne(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	out := EMA(values, 5)
	if len(out) != len(values)-5+1 {
		t.Fatalf("expected %d values, got %d", len(values)-5+1, len(out))
	}
	if !closesApprox(out[0], 3.0, 1e-9) {
		t.Errorf("seed EMA should equal SMA(5) of first 5: got %v", out[0])
	}
}

func TestEMANotEnoughHistory(t *testing.T) {
	if out := EMA([]float64{1, 2}, 5); out != nil {
		t.Errorf("expected nil, got %v", out)
	}
}

func TestRSIAllGainsIs100(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	out := RSI(closes, 14)
	if len(out) == 0 {
		t.Fatal("expected non-empty RSI")
	}
	last := out[len(out)-1]
	if !closesApprox(last, 100, 1e-9) {
		t.Errorf("expected RSI 100 for all-gains series, got %v", last)
	}
}

func TestMACDLength(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = float64(i) + 100
	}
	out := MACD(closes, 12, 26, 9)
	if len(out) == 0 {
		t.Fatal("expected MACD output")
	}
}

func TestBollingerBandsOrdering(t *testing.T) {
	closes := []float64{10, 12, 11, 13, 15, 14, 16, 18, 17, 19, 20}
	out := BollingerBands(closes, 5, 2.0)
	if len(out) == 0 {
		t.Fatal("expected output")
	}
	for _, r := range out {
		if r.Upper < r.Middle || r.Middle < r.Lower {
			t.Errorf("expected upper >= middle >= lower, got %+v", r)
		}
	}
}

func TestStochasticBounds(t *testing.T) {
	highs := []float64{10, 11, 12, 13, 14, 15, 16}
	lows := []float64{8, 9, 10, 11, 12, 13, 14}
	closes := []float64{9, 10, 11, 12, 13, 14, 15}
	out := Stochastic(highs, lows, closes, 3, 2)
	if len(out) == 0 {
		t.Fatal("expected output")
	}
	for _, r := range out {
		if r.K < 0 || r.K > 100 {
			t.Errorf("K out of bounds: %v", r.K)
		}
	}
}

func TestVWAPConstantPriceEqualsPrice(t *testing.T) {
	prices := []float64{100, 100, 100}
	volumes := []float64{1, 2, 3}
	out := VWAP(prices, volumes)
	for _, v := range out {
		if !closesApprox(v, 100, 1e-9) {
			t.Errorf("expected VWAP 100, got %v", v)
		}
	}
}

func TestVWAPMismatchedLengths(t *testing.T) {
	if out := VWAP([]float64{1, 2}, []float64{1}); out != nil {
		t.Errorf("expected nil for mismatched lengths, got %v", out)
	}
}
