package indicators

// VWAP calculates the cumulative Volume-Weighted Average Price: at each
// index, the running sum of typical-price*volume divided by the running sum
// of volume, over the whole sequence so far. One value per input candle.
func VWAP(typicalPrices, volumes []float64) []float64 {
	if len(typicalPrices) == 0 || len(typicalPrices) != len(volumes) {
		return nil
	}

	out := make([]float64, len(typicalPrices))
	var cumPV, cumV float64
	for i, tp := range typicalPrices {
		cumPV += tp * volumes[i]
		cumV += volumes[i]
		if cumV == 0 {
			out[i] = tp
			continue
		}
		out[i] = cumPV / cumV
	}
	return out
}
