package indicators

import "github.com/tradecore/engine/internal/candle"

// Closes extracts the close price series from a candle sequence.
func Closes(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close.Float64()
	}
	return out
}

// Highs extracts the high price series from a candle sequence.
func Highs(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High.Float64()
	}
	return out
}

// Lows extracts the low price series from a candle sequence.
func Lows(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low.Float64()
	}
	return out
}

// TypicalPrices returns (high+low+close)/3 per candle, the input VWAP uses.
func TypicalPrices(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = (c.High.Float64() + c.Low.Float64() + c.Close.Float64()) / 3
	}
	return out
}

// Volumes extracts the volume series from a candle sequence.
func Volumes(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
