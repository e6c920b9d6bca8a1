package screening

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeScorer struct {
	volatility, volume, spread, momentum float64
	err                                  error
}

func (f *fakeScorer) Score(ctx context.Context, exchange, symbol string) (float64, float64, float64, float64, error) {
	return f.volatility, f.volume, f.spread, f.momentum, f.err
}

type fakeStore struct {
	inserted []Result
}

func (s *fakeStore) Insert(ctx context.Context, result Result) error {
	s.inserted = append(s.inserted, result)
	return nil
}

func TestCategoryFromScoreThresholds(t *testing.T) {
	cases := map[float64]RecommendationCategory{
		0.9:  BestCandidate,
		0.75: BestCandidate,
		0.7:  GoodCandidate,
		0.6:  GoodCandidate,
		0.55: FairCandidate,
		0.5:  FairCandidate,
		0.2:  Avoid,
	}
	for score, want := range cases {
		if got := CategoryFromScore(score); got != want {
			t.Errorf("CategoryFromScore(%v) = %v, want %v", score, got, want)
		}
	}
}

func TestNewResultComputesWeightedOverallScore(t *testing.T) {
	r, err := newResult("BTC-USD", "binance", 1.0, 1.0, 0.0, 0.0, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.OverallScore != 0.6 {
		t.Errorf("expected overall score 0.6, got %v", r.OverallScore)
	}
	if r.Recommendation != GoodCandidate {
		t.Errorf("expected good_candidate, got %v", r.Recommendation)
	}
}

func TestNewResultRejectsOutOfRangeScore(t *testing.T) {
	if _, err := newResult("BTC-USD", "binance", 1.5, 0, 0, 0, time.Now()); err == nil {
		t.Fatal("expected validation error for out-of-range score")
	}
}

func TestCacheRescanPopulatesAndPersists(t *testing.T) {
	scorer := &fakeScorer{volatility: 0.8, volume: 0.8, spread: 0.8, momentum: 0.8}
	store := &fakeStore{}
	cache := NewCache(map[string][]string{"binance": {"BTC-USD"}}, scorer, store, time.Hour, zerolog.Nop())

	cache.rescanAll(context.Background())

	result, ok := cache.Get("binance", "BTC-USD")
	if !ok {
		t.Fatal("expected cached result")
	}
	if result.Recommendation != BestCandidate {
		t.Errorf("expected best_candidate, got %v", result.Recommendation)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one persisted result, got %d", len(store.inserted))
	}
}

func TestCacheListOrdersByScoreDescending(t *testing.T) {
	cache := NewCache(nil, &fakeScorer{}, nil, time.Hour, zerolog.Nop())
	cache.results[cacheKey{"binance", "ETH-USD"}] = Result{Symbol: "ETH-USD", Exchange: "binance", OverallScore: 0.4}
	cache.results[cacheKey{"binance", "BTC-USD"}] = Result{Symbol: "BTC-USD", Exchange: "binance", OverallScore: 0.9}

	list := cache.List("binance")
	if len(list) != 2 || list[0].Symbol != "BTC-USD" {
		t.Fatalf("expected BTC-USD first, got %+v", list)
	}
}
