package strategy

import "github.com/tradecore/engine/internal/candle"

// weightedStrategy pairs a strategy with its fixed combiner weight.
type weightedStrategy struct {
	strategy Strategy
	weight   float64
}

// Combiner fuses an ordered ensemble of (strategy, weight) pairs into a
// single TradingSignal by confidence-weighted averaging.
type Combiner struct {
	members []weightedStrategy
}

// NewCombiner builds a Combiner from parallel strategies/weights slices.
// Panics if the lengths differ or the ensemble is empty: this is a wiring
// error, not a runtime condition callers should handle.
func NewCombiner(strategies []Strategy, weights []float64) *Combiner {
	if len(strategies) != len(weights) || len(strategies) == 0 {
		panic("strategy: combiner requires len(strategies) == len(weights) >= 1")
	}
	members := make([]weightedStrategy, len(strategies))
	for i := range strategies {
		members[i] = weightedStrategy{strategy: strategies[i], weight: weights[i]}
	}
	return &Combiner{members: members}
}

// Combine evaluates every ensemble member against candles and fuses the
// results. Returns nil if no strategy emitted a signal.
func (c *Combiner) Combine(candles []candle.Candle) *TradingSignal {
	var buyScore, sellScore, totalWeight float64
	var anySignal bool

	for _, m := range c.members {
		sig := m.strategy.GenerateSignal(candles)
		if sig == nil {
			continue
		}
		anySignal = true
		totalWeight += m.weight
		switch sig.Direction {
		case Buy:
			buyScore += sig.Confidence * m.weight
		case Sell:
			sellScore += sig.Confidence * m.weight
		}
	}

	if !anySignal {
		return nil
	}
	if totalWeight == 0 {
		return &TradingSignal{Direction: Hold, Confidence: 0.5}
	}

	buy := buyScore / totalWeight
	sell := sellScore / totalWeight

	switch {
	case buy > sell && buy > 0.5:
		return &TradingSignal{Direction: Buy, Confidence: buy}
	case sell > buy && sell > 0.5:
		return &TradingSignal{Direction: Sell, Confidence: sell}
	default:
		return &TradingSignal{Direction: Hold, Confidence: 0.5}
	}
}
