package strategy

import (
	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/indicators"
)

// FastScalping trades the EMA(5)/EMA(10) cross: a short EMA above the long
// EMA is bullish, below is bearish, equal is a Hold.
type FastScalping struct{}

// NewFastScalping constructs the FastScalping strategy.
func NewFastScalping() *FastScalping { return &FastScalping{} }

func (s *FastScalping) Name() string   { return "FastScalping" }
func (s *FastScalping) MinCandles() int { return 10 }

func (s *FastScalping) GenerateSignal(candles []candle.Candle) *TradingSignal {
	if len(candles) < s.MinCandles() {
		return nil
	}

	closes := indicators.Closes(candles)
	emaFast := indicators.EMA(closes, 5)
	emaSlow := indicators.EMA(closes, 10)
	if len(emaFast) == 0 || len(emaSlow) == 0 {
		return nil
	}

	fast := emaFast[len(emaFast)-1]
	slow := emaSlow[len(emaSlow)-1]

	switch {
	case fast > slow:
		return &TradingSignal{Direction: Buy, Confidence: 0.8}
	case fast < slow:
		return &TradingSignal{Direction: Sell, Confidence: 0.8}
	default:
		return &TradingSignal{Direction: Hold, Confidence: 0.5}
	}
}
