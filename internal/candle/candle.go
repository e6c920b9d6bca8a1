// Package candle aggregates a per-symbol price stream into fixed-duration
// OHLCV candles.
package candle

import (
	"time"

	"github.com/tradecore/engine/internal/money"
)

// Candle is a fixed-duration OHLCV summary of a price stream for one
// symbol. Its constructor does not enforce low <= open,close <= high: this
// is carried forward from the source as a known unsoundness (see
// DESIGN.md), consumers must not assume the invariant holds.
type Candle struct {
	Open   money.Price
	High   money.Price
	Low    money.Price
	Close  money.Price
	Volume float64 // tick count, not traded size — see DESIGN.md
}

// PriceUpdate is a price stamped with the wall-clock time it was observed.
type PriceUpdate struct {
	Price     money.Price
	Timestamp time.Time
}
