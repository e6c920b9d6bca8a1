package candle

import (
	"sync"
	"time"

	"github.com/tradecore/engine/internal/money"
)

// Builder converts a stream of per-symbol PriceUpdates into a bounded
// history of fixed-duration OHLCV candles per symbol. It is safe for
// concurrent use; the Candle Builder owns its in-progress buffer exclusively
// (see spec's ownership rule) but is called from a single actor's goroutine
// in practice, so the lock only guards against the builder's own snapshot
// reads from a different goroutine (e.g. an HTTP handler).
type Builder struct {
	windowDuration time.Duration
	maxHistory     int

	mu      sync.Mutex
	updates map[string][]PriceUpdate
	candles map[string][]Candle

	now func() time.Time
}

// NewBuilder creates a Builder with the given window duration and maximum
// retained candle history per symbol.
func NewBuilder(windowDuration time.Duration, maxHistory int) *Builder {
	return &Builder{
		windowDuration: windowDuration,
		maxHistory:     maxHistory,
		updates:        make(map[string][]PriceUpdate),
		candles:        make(map[string][]Candle),
		now:            time.Now,
	}
}

// AddPrice stamps price with the current clock, appends it to symbol's
// in-progress buffer, and attempts to close the oldest window.
func (b *Builder) AddPrice(symbol string, price money.Price) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.updates[symbol] = append(b.updates[symbol], PriceUpdate{
		Price:     price,
		Timestamp: b.now(),
	})

	b.tryBuildCandle(symbol)
}

// tryBuildCandle drains the front of symbol's buffer once the earliest
// buffered timestamp is at least windowDuration old, building one candle
// from everything up to earliest+windowDuration. Must be called with mu
// held.
func (b *Builder) tryBuildCandle(symbol string) {
	updates := b.updates[symbol]
	if len(updates) == 0 {
		return
	}

	first := updates[0].Timestamp
	if b.now().Sub(first) < b.windowDuration {
		return
	}

	windowEnd := first.Add(b.windowDuration)

	i := 0
	for i < len(updates) && !updates[i].Timestamp.After(windowEnd) {
		i++
	}
	window := updates[:i]
	remaining := updates[i:]

	if len(window) == 0 {
		b.updates[symbol] = remaining
		return
	}

	c := buildCandleFromUpdates(window)
	b.candles[symbol] = append(b.candles[symbol], c)
	if over := len(b.candles[symbol]) - b.maxHistory; over > 0 {
		b.candles[symbol] = b.candles[symbol][over:]
	}

	b.updates[symbol] = remaining
}

func buildCandleFromUpdates(updates []PriceUpdate) Candle {
	open := updates[0].Price
	close := updates[len(updates)-1].Price
	high := updates[0].Price
	low := updates[0].Price
	for _, u := range updates[1:] {
		if u.Price.Float64() > high.Float64() {
			high = u.Price
		}
		if u.Price.Float64() < low.Float64() {
			low = u.Price
		}
	}
	return Candle{
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: float64(len(updates)),
	}
}

// GetCandles returns a snapshot copy of symbol's candle history.
func (b *Builder) GetCandles(symbol string) []Candle {
	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.candles[symbol]
	out := make([]Candle, len(src))
	copy(out, src)
	return out
}

// CandleCount returns the number of candles held for symbol.
func (b *Builder) CandleCount(symbol string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.candles[symbol])
}

// ClearSymbol discards all buffered updates and candles for symbol.
func (b *Builder) ClearSymbol(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.updates, symbol)
	delete(b.candles, symbol)
}

// Symbols returns every symbol with at least one completed candle.
func (b *Builder) Symbols() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.candles))
	for s := range b.candles {
		out = append(out, s)
	}
	return out
}
