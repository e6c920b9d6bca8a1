// Package supervisor wires one pipeline per configured exchange (market
// actor, candle builder, strategy combiner, executor, position manager,
// trader) together with the shared reconciliation service and screening
// cache, and runs the 30s health-check loop spec.md §5 describes. Grounded
// on `cmd/bot/main.go`'s startup ordering and on
// FOTONPHOTOS-PULSEINTEL/go_Stream/internal/supervisor/supervisor.go's
// health-check-loop idiom, adapted from a generic named-worker registry to
// this engine's fixed exchange/reconciliation/screening topology.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/exchange"
	"github.com/tradecore/engine/internal/executor"
	"github.com/tradecore/engine/internal/market"
	"github.com/tradecore/engine/internal/metrics"
	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/position"
	"github.com/tradecore/engine/internal/reconcile"
	"github.com/tradecore/engine/internal/screening"
	"github.com/tradecore/engine/internal/storage"
	"github.com/tradecore/engine/internal/strategy"
)

const (
	defaultTickInterval        = time.Second
	defaultReconcileInterval   = 5 * time.Minute
	defaultHealthCheckInterval = 30 * time.Second
)

// Pipeline is one exchange's end-to-end wiring: price tick -> candle ->
// combined signal -> executor -> position tracking.
type Pipeline struct {
	Name     string
	Actor    *market.Actor
	Builder  *candle.Builder
	Combiner *strategy.Combiner
	Executor *executor.Executor
	Trader   *exchange.Trader
	Symbols  []string
}

// Config assembles everything one Supervisor run needs. Pipelines must
// already have their Actor, Builder, Combiner, Executor, and Trader wired;
// Supervisor only sequences their execution and aggregates health.
type Config struct {
	Pipelines         []*Pipeline
	Positions         *position.Manager
	Reconciler        *reconcile.Service
	Screening         *screening.Cache
	Metrics           *metrics.Metrics
	Trades            *storage.TradeRepository
	AuditLog          *storage.AuditLogRepository
	TickInterval      time.Duration
	ReconcileInterval time.Duration
	HealthInterval    time.Duration
	Logger            zerolog.Logger
}

// Supervisor runs every configured pipeline, the reconciliation loop, the
// screening cache, and the health-check loop until its context is
// cancelled.
type Supervisor struct {
	cfg       Config
	startedAt time.Time

	healthMu sync.RWMutex
	health   map[string]bool

	wg sync.WaitGroup
}

// New constructs a Supervisor, filling unset intervals with spec.md §5/§6
// defaults (1s tick, 5min reconciliation, 30s health check).
func New(cfg Config) *Supervisor {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = defaultHealthCheckInterval
	}
	return &Supervisor{cfg: cfg, health: make(map[string]bool)}
}

// Run starts every subsystem and blocks until ctx is cancelled, then waits
// for all of them to stop.
func (s *Supervisor) Run(ctx context.Context) {
	s.startedAt = time.Now()

	for _, p := range s.cfg.Pipelines {
		p := p
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			p.Actor.Run(ctx)
		}()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runPipeline(ctx, p)
		}()
	}

	if s.cfg.Positions != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runTriggerLoop(ctx)
		}()
	}

	if s.cfg.Reconciler != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runReconcileLoop(ctx)
		}()
	}

	if s.cfg.Screening != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.cfg.Screening.Run(ctx); err != nil && ctx.Err() == nil {
				s.cfg.Logger.Error().Err(err).Msg("screening cache stopped")
			}
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runHealthLoop(ctx)
	}()

	s.wg.Wait()
}

// runPipeline feeds every symbol's latest tick into the candle builder and,
// once enough history exists, runs the combined signal through the
// executor.
func (s *Supervisor) runPipeline(ctx context.Context, p *Pipeline) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, symbol := range p.Symbols {
				price, ok := p.Actor.GetPrice(symbol)
				if !ok {
					continue
				}
				p.Builder.AddPrice(symbol, price)
				candles := p.Builder.GetCandles(symbol)
				if len(candles) == 0 {
					continue
				}

				signal := p.Combiner.Combine(candles)
				if signal == nil {
					continue
				}

				result, err := p.Executor.ExecuteSignal(ctx, symbol, signal, price)
				if err != nil {
					if s.cfg.Metrics != nil {
						s.cfg.Metrics.RecordOrderRejected(symbol, err.Error())
					}
					s.cfg.Logger.Warn().Err(err).Str("exchange", p.Name).Str("symbol", symbol).Msg("signal rejected")
					continue
				}
				if result == nil || result.OrderID == "" {
					continue
				}

				side := "buy"
				if signal.Direction == strategy.Sell {
					side = "sell"
				}
				if s.cfg.Metrics != nil {
					s.cfg.Metrics.RecordOrderPlaced(p.Name, symbol, side, 0)
				}
				s.recordFill(ctx, p, symbol, side, signal, price, result)
			}
		}
	}
}

func (s *Supervisor) recordFill(ctx context.Context, p *Pipeline, symbol, side string, signal *strategy.TradingSignal, price money.Price, result *executor.Result) {
	if s.cfg.Trades != nil {
		confidence := signal.Confidence
		_ = s.cfg.Trades.Insert(ctx, storage.TradeRecord{
			ID:               result.OrderID,
			Symbol:           symbol,
			Exchange:         p.Name,
			Side:             side,
			Price:            price.Float64(),
			ExecutedAt:       time.Now(),
			SignalConfidence: &confidence,
		})
	}
	if s.cfg.AuditLog != nil {
		_ = s.cfg.AuditLog.Append(ctx, "order_placed", p.Name, &symbol, map[string]interface{}{
			"order_id":   result.OrderID,
			"side":       side,
			"confidence": signal.Confidence,
		})
	}
}

// runTriggerLoop polls Position Manager for fired stop-loss/take-profit
// triggers and closes the affected positions.
func (s *Supervisor) runTriggerLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, event := range s.cfg.Positions.CheckTriggers() {
				pnl, err := s.cfg.Positions.Close(event.PositionID)
				if err != nil {
					s.cfg.Logger.Error().Err(err).Str("position_id", event.PositionID).Msg("failed to close triggered position")
					continue
				}
				s.cfg.Logger.Info().Str("position_id", event.PositionID).Str("trigger", string(event.Trigger)).
					Float64("pnl", pnl.Float64()).Msg("position closed by trigger")
			}
		}
	}
}

// runReconcileLoop reconciles every pipeline's exchange on
// cfg.ReconcileInterval.
func (s *Supervisor) runReconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range s.cfg.Pipelines {
				local := localBalances(s.cfg.Positions)
				report, err := s.cfg.Reconciler.Reconcile(ctx, p.Name, local)
				if err != nil {
					s.cfg.Logger.Error().Err(err).Str("exchange", p.Name).Msg("reconciliation failed")
					continue
				}
				if s.cfg.Metrics != nil {
					kinds := map[string]int{}
					for _, d := range report.Discrepancies {
						kinds[string(d.Kind)]++
					}
					s.cfg.Metrics.RecordReconciliation(p.Name, int(report.Status), kinds)
				}
			}
		}
	}
}

// localBalances approximates the engine's own bookkeeping view of
// available cash per quote currency: portfolio value minus notional
// committed to open positions. Position Manager tracks a single
// portfolio_value, so this reports one USD-denominated figure.
func localBalances(positions *position.Manager) map[string]float64 {
	if positions == nil {
		return map[string]float64{}
	}
	return map[string]float64{"USD": positions.PortfolioExposure()}
}

// runHealthLoop samples every pipeline's actor and trader health every
// HealthInterval, per spec.md §5's 30s supervisor health ticker.
func (s *Supervisor) runHealthLoop(ctx context.Context) {
	s.sampleHealth(ctx)

	ticker := time.NewTicker(s.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleHealth(ctx)
		}
	}
}

func (s *Supervisor) sampleHealth(ctx context.Context) {
	next := make(map[string]bool, len(s.cfg.Pipelines)*2)
	for _, p := range s.cfg.Pipelines {
		next["stream:"+p.Name] = p.Actor.Healthy()
		for exchangeName, healthy := range p.Trader.CheckHealth(ctx) {
			next["client:"+exchangeName] = healthy
		}
	}

	s.healthMu.Lock()
	s.health = next
	s.healthMu.Unlock()

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SetUptime(time.Since(s.startedAt))
		for name, healthy := range next {
			s.cfg.Metrics.SetExchangeStatus(name, healthy)
		}
	}
}

// ActorHealth implements api.HealthChecker: a snapshot of the most recent
// health sample, never blocking on a live check.
func (s *Supervisor) ActorHealth() map[string]bool {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()
	out := make(map[string]bool, len(s.health))
	for k, v := range s.health {
		out[k] = v
	}
	return out
}
