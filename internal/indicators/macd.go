package indicators

// MACDResult holds one point of the MACD, signal, and histogram sequences.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD calculates the Moving Average Convergence Divergence: the fast EMA
// minus the slow EMA, its signal-period EMA, and their difference. Returns
// nil if there isn't enough history for the slow EMA plus the signal EMA.
func MACD(closes []float64, fastPeriod, slowPeriod, signalPeriod int) []MACDResult {
	if len(closes) < slowPeriod+signalPeriod {
		return nil
	}

	fastEMA := EMA(closes, fastPeriod)
	slowEMA := EMA(closes, slowPeriod)
	if fastEMA == nil || slowEMA == nil {
		return nil
	}

	offset := len(fastEMA) - len(slowEMA)
	macdLine := make([]float64, len(slowEMA))
	for i := range slowEMA {
		macdLine[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalLine := EMA(macdLine, signalPeriod)
	if signalLine == nil {
		return nil
	}

	lineOffset := len(macdLine) - len(signalLine)
	out := make([]MACDResult, len(signalLine))
	for i := range signalLine {
		m := macdLine[i+lineOffset]
		out[i] = MACDResult{
			MACD:      m,
			Signal:    signalLine[i],
			Histogram: m - signalLine[i],
		}
	}
	return out
}
