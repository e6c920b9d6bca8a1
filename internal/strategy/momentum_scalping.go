package strategy

import (
	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/indicators"
)

// MomentumScalping combines RSI(14) extremes with MACD direction: oversold
// RSI plus a positive MACD is bullish, overbought RSI plus a negative MACD
// is bearish.
type MomentumScalping struct{}

// NewMomentumScalping constructs the MomentumScalping strategy.
func NewMomentumScalping() *MomentumScalping { return &MomentumScalping{} }

func (s *MomentumScalping) Name() string   { return "MomentumScalping" }
func (s *MomentumScalping) MinCandles() int { return 26 }

func (s *MomentumScalping) GenerateSignal(candles []candle.Candle) *TradingSignal {
	if len(candles) < s.MinCandles() {
		return nil
	}

	closes := indicators.Closes(candles)
	rsi := indicators.RSI(closes, 14)
	macd := indicators.MACD(closes, 12, 26, 9)
	if len(rsi) == 0 || len(macd) == 0 {
		return nil
	}

	r := rsi[len(rsi)-1]
	m := macd[len(macd)-1].MACD

	switch {
	case r < 30 && m > 0:
		return &TradingSignal{Direction: Buy, Confidence: 0.9}
	case r > 70 && m < 0:
		return &TradingSignal{Direction: Sell, Confidence: 0.9}
	default:
		return &TradingSignal{Direction: Hold, Confidence: 0.5}
	}
}
