package strategy

import (
	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/indicators"
)

// ConservativeScalping requires three confirming signals before it trades:
// price outside its Bollinger band, Stochastic in the matching extreme, and
// price on the matching side of VWAP.
type ConservativeScalping struct{}

// NewConservativeScalping constructs the ConservativeScalping strategy.
func NewConservativeScalping() *ConservativeScalping { return &ConservativeScalping{} }

func (s *ConservativeScalping) Name() string   { return "ConservativeScalping" }
func (s *ConservativeScalping) MinCandles() int { return 20 }

func (s *ConservativeScalping) GenerateSignal(candles []candle.Candle) *TradingSignal {
	if len(candles) < s.MinCandles() {
		return nil
	}

	closes := indicators.Closes(candles)
	highs := indicators.Highs(candles)
	lows := indicators.Lows(candles)
	typical := indicators.TypicalPrices(candles)
	volumes := indicators.Volumes(candles)

	bb := indicators.BollingerBands(closes, 20, 2.0)
	stoch := indicators.Stochastic(highs, lows, closes, 14, 3)
	vwap := indicators.VWAP(typical, volumes)
	if len(bb) == 0 || len(stoch) == 0 || len(vwap) == 0 {
		return nil
	}

	close := closes[len(closes)-1]
	band := bb[len(bb)-1]
	k := stoch[len(stoch)-1].K
	v := vwap[len(vwap)-1]

	switch {
	case close < band.Lower && k < 20 && close < v:
		return &TradingSignal{Direction: Buy, Confidence: 0.7}
	case close > band.Upper && k > 80 && close > v:
		return &TradingSignal{Direction: Sell, Confidence: 0.7}
	default:
		return &TradingSignal{Direction: Hold, Confidence: 0.6}
	}
}
