// Package reconcile implements the Reconciliation Service: fetch an
// exchange's authoritative balances and compare them against the local
// portfolio, producing a classified, persisted report, per spec.md §4.8.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradecore/engine/internal/tradeerrors"
)

// BalanceFetcher is the exchange-specific balance capability: return the
// authoritative currency -> amount map for exchange.
type BalanceFetcher interface {
	FetchExchangeBalances(ctx context.Context, exchange string) (map[string]float64, error)
}

// Kind distinguishes the three discrepancy shapes spec.md §4.8 names.
type Kind string

const (
	KindMissing   Kind = "missing"
	KindMismatch  Kind = "mismatch"
	KindPrecision Kind = "precision"
)

// Discrepancy is one currency's deviation between local and exchange state.
type Discrepancy struct {
	Kind        Kind
	Currency    string
	LocalAmount float64
	Exchange    float64
	Diff        float64
	Tolerance   float64
}

// Severity grades a Discrepancy for the report's overall status rollup.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityMinor
	SeverityMajor
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "minor"
	case SeverityMajor:
		return "major"
	case SeverityCritical:
		return "critical"
	default:
		return "ok"
	}
}

func (d Discrepancy) severity() Severity {
	switch d.Kind {
	case KindMissing:
		return SeverityCritical
	case KindMismatch:
		switch {
		case d.Diff > 100:
			return SeverityCritical
		case d.Diff > 10:
			return SeverityMajor
		default:
			return SeverityMinor
		}
	default:
		return SeverityOK
	}
}

// Report is the outcome of reconciling one exchange.
type Report struct {
	ID              string
	Exchange        string
	Timestamp       time.Time
	Status          Severity
	Discrepancies   []Discrepancy
}

// Config governs fetch timeout, discrepancy classification thresholds, and
// the fetch retry policy.
type Config struct {
	Timeout            time.Duration
	PrecisionTolerance float64
	ThresholdPercentage float64
	MaxRetries         int
	InitialRetryDelay  time.Duration
	MaxRetryDelay      time.Duration
}

// DefaultConfig matches spec.md §4.8's stated defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             30 * time.Second,
		PrecisionTolerance:  0.0001,
		ThresholdPercentage: 0.1,
		MaxRetries:          3,
		InitialRetryDelay:   time.Second,
		MaxRetryDelay:       10 * time.Second,
	}
}

// AuditStore persists a completed Report.
type AuditStore interface {
	SaveReconciliation(ctx context.Context, report Report) error
}

// Service runs reconciliation for one or more exchanges.
type Service struct {
	cfg     Config
	fetcher BalanceFetcher
	store   AuditStore
	logger  *zap.Logger
	now     func() time.Time
}

// New constructs a Service. Logging for this service deliberately goes
// through zap rather than zerolog: reconciliation runs on its own
// schedule, off the request/stream hot path the rest of the core logs
// through, and its audit trail benefits from zap's structured field
// typing at the call site.
func New(cfg Config, fetcher BalanceFetcher, store AuditStore, logger *zap.Logger) *Service {
	return &Service{cfg: cfg, fetcher: fetcher, store: store, logger: logger, now: time.Now}
}

// Reconcile fetches exchange's balances (with retry), compares them
// against local, persists the resulting report, and returns it.
func (s *Service) Reconcile(ctx context.Context, exchange string, local map[string]float64) (Report, error) {
	exchangeBalances, err := s.fetchWithRetry(ctx, exchange)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		ID:        uuid.New().String(),
		Exchange:  exchange,
		Timestamp: s.now(),
		Status:    SeverityOK,
	}

	for currency, localAmount := range local {
		exchangeAmount, ok := exchangeBalances[currency]
		if !ok {
			report.Discrepancies = append(report.Discrepancies, Discrepancy{
				Kind: KindMissing, Currency: currency, LocalAmount: localAmount,
			})
			continue
		}
		diff := absFloat(localAmount - exchangeAmount)
		switch {
		case diff <= s.cfg.PrecisionTolerance:
			report.Discrepancies = append(report.Discrepancies, Discrepancy{
				Kind: KindPrecision, Currency: currency, Tolerance: s.cfg.PrecisionTolerance,
			})
		case exchangeAmount != 0 && diff/absFloat(exchangeAmount) >= s.cfg.ThresholdPercentage:
			report.Discrepancies = append(report.Discrepancies, Discrepancy{
				Kind: KindMismatch, Currency: currency, LocalAmount: localAmount, Exchange: exchangeAmount, Diff: diff,
			})
		}
	}

	for _, d := range report.Discrepancies {
		if d.severity() > report.Status {
			report.Status = d.severity()
		}
	}

	s.logger.Info("reconciliation complete",
		zap.String("exchange", exchange),
		zap.String("status", report.Status.String()),
		zap.Int("discrepancy_count", len(report.Discrepancies)))

	if s.store != nil {
		if err := s.store.SaveReconciliation(ctx, report); err != nil {
			s.logger.Warn("failed to persist reconciliation report", zap.Error(err))
		}
	}

	return report, nil
}

func (s *Service) fetchWithRetry(ctx context.Context, exchange string) (map[string]float64, error) {
	delay := s.cfg.InitialRetryDelay
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		balances, err := s.fetcher.FetchExchangeBalances(fetchCtx, exchange)
		cancel()
		if err == nil {
			return balances, nil
		}
		if fetchCtx.Err() == context.DeadlineExceeded {
			lastErr = &tradeerrors.NetworkTimeout{Operation: "fetch_exchange_balances:" + exchange, TimeoutMS: s.cfg.Timeout.Milliseconds()}
		} else {
			lastErr = err
		}
		if attempt < s.cfg.MaxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.cfg.MaxRetryDelay {
				delay = s.cfg.MaxRetryDelay
			}
		}
	}
	return nil, lastErr
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
