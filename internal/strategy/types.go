// Package strategy implements the scalping strategy ensemble and the
// weighted signal combiner that fuses their output into one TradingSignal.
package strategy

import "github.com/tradecore/engine/internal/candle"

// Direction is the directional recommendation a signal carries.
type Direction int

const (
	Hold Direction = iota
	Buy
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// TradingSignal is a directional recommendation with a confidence in [0,1].
type TradingSignal struct {
	Direction  Direction
	Confidence float64
}

// Strategy is the capability every strategy in the ensemble implements.
// GenerateSignal returns nil when the strategy has nothing to say (usually
// because it doesn't have enough candle history yet).
type Strategy interface {
	Name() string
	MinCandles() int
	GenerateSignal(candles []candle.Candle) *TradingSignal
}
