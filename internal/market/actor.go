// Package market implements the Exchange Market-Data Actor: one instance
// per exchange, maintaining a single live price stream and answering
// GetPrice as a request/reply operation.
package market

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/resilience"
)

// Stream is the exchange-specific streaming capability: connect to the
// public price feed and invoke onTick for every parsed price update. Stream
// implementations own wire framing and parsing; Run should block until the
// connection ends, returning a non-nil error on any failure so the actor's
// supervised loop can reconnect with backoff.
type Stream interface {
	Name() string
	Run(ctx context.Context, symbols []string, onTick func(symbol string, price money.Price)) error
}

// Actor maintains one live price stream for one exchange. Its last_price
// cell is written by the streaming loop and read by GetPrice, both guarded
// by the same mutex so there are no torn reads.
type Actor struct {
	stream  Stream
	symbols []string
	runner  *resilience.TaskRunner

	mu         sync.RWMutex
	lastPrice  map[string]money.Price
	hasPrice   map[string]bool
}

// NewActor constructs a market-data Actor for one exchange's stream,
// tracking the given symbols.
func NewActor(stream Stream, symbols []string, logger zerolog.Logger) *Actor {
	a := &Actor{
		stream:    stream,
		symbols:   symbols,
		lastPrice: make(map[string]money.Price),
		hasPrice:  make(map[string]bool),
	}
	a.runner = resilience.NewTaskRunner(resilience.TaskRunnerConfig{
		Name:                   "market-data:" + stream.Name(),
		InitialRetryDelay:      defaultInitialRetryDelay,
		MaxRetryDelay:          defaultMaxRetryDelay,
		MaxConsecutiveFailures: 0, // streaming loops retry forever; connectivity is never fatal
	}, logger, nil)
	return a
}

// Run starts the supervised streaming loop; blocks until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) {
	a.runner.Run(ctx, func(ctx context.Context) error {
		return a.stream.Run(ctx, a.symbols, a.onTick)
	})
}

func (a *Actor) onTick(symbol string, price money.Price) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastPrice[symbol] = price
	a.hasPrice[symbol] = true
}

// GetPrice is non-blocking with respect to reconnection: it returns
// (zero, false) until the first tick for symbol lands.
func (a *Actor) GetPrice(symbol string) (money.Price, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.hasPrice[symbol]
	if !ok || !p {
		return money.Price{}, false
	}
	return a.lastPrice[symbol], true
}

// Name returns the exchange this actor maintains a stream for.
func (a *Actor) Name() string { return a.stream.Name() }

// Healthy reports whether any tracked symbol has received at least one
// tick, a cheap proxy for "the stream is up" used by the Supervisor's
// health rollup. An actor that tracks no symbols reports healthy.
func (a *Actor) Healthy() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, ok := range a.hasPrice {
		if ok {
			return true
		}
	}
	return len(a.hasPrice) == 0 && len(a.symbols) == 0
}
