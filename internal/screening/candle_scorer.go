package screening

import (
	"context"
	"fmt"

	"github.com/tradecore/engine/internal/candle"
)

// CandleHistory returns the most recent closed candles for symbol, as
// already tracked by the Candle Builder.
type CandleHistory interface {
	GetCandles(symbol string) []candle.Candle
}

// CandleScorer derives the four component scores from a symbol's recent
// candle history: volatility from high/low range, volume from tick count,
// spread from the close/open ratio (tighter = better), momentum from the
// direction and size of net price movement across the window. This is a
// placeholder scorer, not a reimplementation of the original's scoring
// internals; it exists to keep screening wired end-to-end.
type CandleScorer struct {
	history CandleHistory
}

// NewCandleScorer constructs a CandleScorer reading from history.
func NewCandleScorer(history CandleHistory) *CandleScorer {
	return &CandleScorer{history: history}
}

// Score implements Scorer.
func (s *CandleScorer) Score(ctx context.Context, exchange, symbol string) (volatility, volume, spread, momentum float64, err error) {
	candles := s.history.GetCandles(symbol)
	if len(candles) == 0 {
		return 0, 0, 0, 0, fmt.Errorf("no candle history for %s", symbol)
	}

	var totalRange, totalTicks, totalSpread, netMove, maxMove float64
	first := candles[0].Open.Float64()
	last := candles[len(candles)-1].Close.Float64()

	for _, c := range candles {
		o, h, l, cl := c.Open.Float64(), c.High.Float64(), c.Low.Float64(), c.Close.Float64()
		if o == 0 {
			continue
		}
		rangePct := (h - l) / o
		totalRange += clamp01(rangePct * 10)
		totalTicks += c.Volume
		totalSpread += clamp01(1 - absF(cl-o)/o*10)
		move := absF(cl - o)
		if move > maxMove {
			maxMove = move
		}
	}
	n := float64(len(candles))

	volatility = clamp01(totalRange / n)
	spread = clamp01(totalSpread / n)

	const tickNormalizer = 100.0
	volume = clamp01(totalTicks / (n * tickNormalizer))

	if first != 0 {
		netMove = (last - first) / first
	}
	momentum = clamp01(0.5 + netMove*5)

	return volatility, volume, spread, momentum, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
