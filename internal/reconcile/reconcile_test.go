package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeFetcher struct {
	balances map[string]float64
	err      error
	calls    int
}

func (f *fakeFetcher) FetchExchangeBalances(ctx context.Context, exchange string) (map[string]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.balances, nil
}

type fakeStore struct {
	saved []Report
}

func (s *fakeStore) SaveReconciliation(ctx context.Context, report Report) error {
	s.saved = append(s.saved, report)
	return nil
}

func TestReconcileDetectsMissingCurrency(t *testing.T) {
	fetcher := &fakeFetcher{balances: map[string]float64{"BTC": 1.0}}
	store := &fakeStore{}
	svc := New(DefaultConfig(), fetcher, store, zap.NewNop())

	report, err := svc.Reconcile(context.Background(), "binance", map[string]float64{"BTC": 1.0, "ETH": 5.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != SeverityCritical {
		t.Fatalf("expected Critical status for a missing currency, got %v", report.Status)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected report to be persisted")
	}
}

func TestReconcileDetectsMismatch(t *testing.T) {
	fetcher := &fakeFetcher{balances: map[string]float64{"BTC": 1.0}}
	svc := New(DefaultConfig(), fetcher, &fakeStore{}, zap.NewNop())

	report, err := svc.Reconcile(context.Background(), "binance", map[string]float64{"BTC": 1.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != SeverityMinor {
		t.Fatalf("expected Minor status for a small-magnitude mismatch, got %v", report.Status)
	}
}

// TestReconcileGradesMismatchByDiffMagnitude reproduces the diff-magnitude
// grading thresholds (>100 Critical, >10 Major, else Minor), including the
// USD=1000 vs USD=1150 case (diff=150, Critical).
func TestReconcileGradesMismatchByDiffMagnitude(t *testing.T) {
	cases := []struct {
		name         string
		local        float64
		exchange     float64
		wantSeverity Severity
	}{
		{"critical", 1000, 1150, SeverityCritical},
		{"major", 100, 150, SeverityMajor},
		{"minor", 10, 15, SeverityMinor},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &fakeFetcher{balances: map[string]float64{"USD": tc.exchange}}
			svc := New(DefaultConfig(), fetcher, &fakeStore{}, zap.NewNop())

			report, err := svc.Reconcile(context.Background(), "binance", map[string]float64{"USD": tc.local})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if report.Status != tc.wantSeverity {
				t.Fatalf("expected %v status, got %v", tc.wantSeverity, report.Status)
			}
			if len(report.Discrepancies) != 1 || report.Discrepancies[0].Kind != KindMismatch {
				t.Fatalf("expected a single mismatch discrepancy, got %+v", report.Discrepancies)
			}
			if report.Discrepancies[0].severity() != tc.wantSeverity {
				t.Fatalf("expected discrepancy severity %v, got %v", tc.wantSeverity, report.Discrepancies[0].severity())
			}
		})
	}
}

func TestReconcileWithinToleranceIsPrecisionOnly(t *testing.T) {
	fetcher := &fakeFetcher{balances: map[string]float64{"BTC": 1.00001}}
	svc := New(DefaultConfig(), fetcher, &fakeStore{}, zap.NewNop())

	report, err := svc.Reconcile(context.Background(), "binance", map[string]float64{"BTC": 1.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != SeverityOK {
		t.Fatalf("expected OK status within precision tolerance, got %v", report.Status)
	}
	if len(report.Discrepancies) != 1 || report.Discrepancies[0].Kind != KindPrecision {
		t.Fatalf("expected a single precision discrepancy, got %+v", report.Discrepancies)
	}
}

func TestReconcileRetriesTransientFetchFailures(t *testing.T) {
	fetcher := &retryThenSucceed{failTimes: 2, balances: map[string]float64{"BTC": 1.0}}
	cfg := DefaultConfig()
	cfg.InitialRetryDelay = time.Millisecond
	cfg.MaxRetryDelay = 2 * time.Millisecond
	svc := New(cfg, fetcher, &fakeStore{}, zap.NewNop())

	_, err := svc.Reconcile(context.Background(), "binance", map[string]float64{"BTC": 1.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", fetcher.attempts)
	}
}

type retryThenSucceed struct {
	failTimes int
	attempts  int
	balances  map[string]float64
}

func (f *retryThenSucceed) FetchExchangeBalances(ctx context.Context, exchange string) (map[string]float64, error) {
	f.attempts++
	if f.attempts <= f.failTimes {
		return nil, errors.New("transient")
	}
	return f.balances, nil
}
