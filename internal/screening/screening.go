// Package screening implements a minimal symbol scoring cache: component
// scores in [0,1] combined into an overall scalping-potential score and a
// RecommendationCategory, refreshed on a periodic ticker and persisted.
// Grounded on original_source's symbol_screening.rs entity and
// screening_actor.rs's periodic-rescan shape; the scorer itself is a
// placeholder since spec.md frames screening as out-of-core.
package screening

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RecommendationCategory grades a symbol's overall_score per spec.md §8's
// testable thresholds.
type RecommendationCategory string

const (
	BestCandidate RecommendationCategory = "best_candidate"
	GoodCandidate RecommendationCategory = "good_candidate"
	FairCandidate RecommendationCategory = "fair_candidate"
	Avoid         RecommendationCategory = "avoid"
)

// CategoryFromScore maps an overall score to its recommendation bucket.
func CategoryFromScore(score float64) RecommendationCategory {
	switch {
	case score >= 0.75:
		return BestCandidate
	case score >= 0.60:
		return GoodCandidate
	case score >= 0.50:
		return FairCandidate
	default:
		return Avoid
	}
}

// Result is one symbol's scored snapshot.
type Result struct {
	Symbol          string
	Exchange        string
	VolatilityScore float64
	VolumeScore     float64
	SpreadScore     float64
	MomentumScore   float64
	OverallScore    float64
	Recommendation  RecommendationCategory
	ScreenedAt      time.Time
}

// newResult validates component scores and derives the overall score and
// recommendation using the original's weighting: 0.3 volatility + 0.3
// volume + 0.2 spread + 0.2 momentum.
func newResult(symbol, exchange string, volatility, volume, spread, momentum float64, at time.Time) (Result, error) {
	for name, v := range map[string]float64{
		"volatility_score": volatility, "volume_score": volume,
		"spread_score": spread, "momentum_score": momentum,
	} {
		if v < 0 || v > 1 {
			return Result{}, fmt.Errorf("%s must be in [0,1], got %v", name, v)
		}
	}
	overall := 0.3*volatility + 0.3*volume + 0.2*spread + 0.2*momentum
	return Result{
		Symbol:          symbol,
		Exchange:        exchange,
		VolatilityScore: volatility,
		VolumeScore:     volume,
		SpreadScore:     spread,
		MomentumScore:   momentum,
		OverallScore:    overall,
		Recommendation:  CategoryFromScore(overall),
		ScreenedAt:      at,
	}, nil
}

// Scorer computes the four component scores for one (exchange, symbol).
// The production scorer would read recent ticks/candles; this placeholder
// keeps screening wired end-to-end (cache, persistence, HTTP surface)
// without reimplementing the original's full scoring internals.
type Scorer interface {
	Score(ctx context.Context, exchange, symbol string) (volatility, volume, spread, momentum float64, err error)
}

// Store persists each screening result.
type Store interface {
	Insert(ctx context.Context, result Result) error
}

// HistoryReader is an optional capability of Store: returning persisted
// results older than what the in-memory Cache retains (the Cache itself
// only ever holds the latest result per symbol).
type HistoryReader interface {
	History(ctx context.Context, exchange, symbol string, limit int) ([]Result, error)
}

type cacheKey struct {
	exchange, symbol string
}

// Cache holds the latest screening result per (exchange, symbol) and runs
// the periodic rescan loop, grounded on screening_actor.rs's tick-driven
// rescan pattern.
type Cache struct {
	mu      sync.RWMutex
	results map[cacheKey]Result

	symbols  map[string][]string // exchange -> symbols to screen
	scorer   Scorer
	store    Store
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCache constructs a Cache. symbols maps each exchange to the list of
// symbols it should screen on every tick.
func NewCache(symbols map[string][]string, scorer Scorer, store Store, interval time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		results:  make(map[cacheKey]Result),
		symbols:  symbols,
		scorer:   scorer,
		store:    store,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run rescans every configured symbol once per interval until ctx is
// cancelled. Matches spec.md §5's "typical 5 min" screening ticker.
func (c *Cache) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.rescanAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.rescanAll(ctx)
		}
	}
}

func (c *Cache) rescanAll(ctx context.Context) {
	for exchange, symbols := range c.symbols {
		for _, symbol := range symbols {
			if err := c.rescanOne(ctx, exchange, symbol); err != nil {
				c.logger.Warn().Err(err).Str("exchange", exchange).Str("symbol", symbol).Msg("screening scan failed")
			}
		}
	}
}

func (c *Cache) rescanOne(ctx context.Context, exchange, symbol string) error {
	volatility, volume, spread, momentum, err := c.scorer.Score(ctx, exchange, symbol)
	if err != nil {
		return err
	}
	result, err := newResult(symbol, exchange, volatility, volume, spread, momentum, c.now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.results[cacheKey{exchange, symbol}] = result
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Insert(ctx, result); err != nil {
			c.logger.Warn().Err(err).Str("exchange", exchange).Str("symbol", symbol).Msg("failed to persist screening result")
		}
	}
	return nil
}

// Get returns the cached result for (exchange, symbol), if any.
func (c *Cache) Get(exchange, symbol string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[cacheKey{exchange, symbol}]
	return r, ok
}

// List returns every cached result for exchange, ordered by OverallScore
// descending.
func (c *Cache) List(exchange string) []Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Result
	for k, v := range c.results {
		if k.exchange == exchange {
			out = append(out, v)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].OverallScore > out[j-1].OverallScore; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// KnownExchange reports whether exchange is configured for screening.
func (c *Cache) KnownExchange(exchange string) bool {
	_, ok := c.symbols[exchange]
	return ok
}

// History returns exchange/symbol's persisted screening history via the
// Store, if it implements HistoryReader; otherwise it falls back to the
// single cached result.
func (c *Cache) History(exchange, symbol string, limit int) []Result {
	if reader, ok := c.store.(HistoryReader); ok {
		results, err := reader.History(context.Background(), exchange, symbol, limit)
		if err == nil {
			return results
		}
		c.logger.Warn().Err(err).Str("exchange", exchange).Str("symbol", symbol).Msg("failed to read screening history")
	}
	if r, ok := c.Get(exchange, symbol); ok {
		return []Result{r}
	}
	return nil
}
