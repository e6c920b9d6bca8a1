package indicators

// StochasticResult holds one point of the %K/%D sequence.
type StochasticResult struct {
	K float64
	D float64
}

// Stochastic calculates the Stochastic Oscillator: %K as the close's
// position within the kPeriod high/low range, %D as the dPeriod SMA of %K.
// Returns nil if there isn't enough history.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) []StochasticResult {
	n := len(closes)
	if kPeriod <= 0 || dPeriod <= 0 || n < kPeriod+dPeriod-1 || len(highs) != n || len(lows) != n {
		return nil
	}

	rawK := make([]float64, n-kPeriod+1)
	for i := kPeriod - 1; i < n; i++ {
		high := Max(highs[i-kPeriod+1 : i+1])
		low := Min(lows[i-kPeriod+1 : i+1])
		if high == low {
			rawK[i-kPeriod+1] = 50
		} else {
			rawK[i-kPeriod+1] = 100 * (closes[i] - low) / (high - low)
		}
	}

	d := SMA(rawK, dPeriod)
	if d == nil {
		return nil
	}

	offset := len(rawK) - len(d)
	out := make([]StochasticResult, len(d))
	for i := range d {
		out[i] = StochasticResult{K: rawK[i+offset], D: d[i]}
	}
	return out
}
