package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tradecore/engine/internal/api"
	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/config"
	"github.com/tradecore/engine/internal/exchange"
	"github.com/tradecore/engine/internal/executor"
	"github.com/tradecore/engine/internal/market"
	"github.com/tradecore/engine/internal/metrics"
	"github.com/tradecore/engine/internal/position"
	"github.com/tradecore/engine/internal/reconcile"
	"github.com/tradecore/engine/internal/screening"
	"github.com/tradecore/engine/internal/storage"
	"github.com/tradecore/engine/internal/strategy"
	"github.com/tradecore/engine/internal/supervisor"
)

const shutdownGracePeriod = 2 * time.Second

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().Msg("starting tradecore engine")

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Warn().Err(err).Msg("failed to load config.yaml, using defaults")
		cfg = config.DefaultConfig()
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize zap logger")
	}
	defer zapLogger.Sync()

	db, err := storage.NewSQLiteDB(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	trades := storage.NewTradeRepository(db)
	auditLog := storage.NewAuditLogRepository(db)
	reconRepo := storage.NewReconciliationRepository(db)
	screeningRepo := storage.NewScreeningRepository(db)

	positions := position.NewManager(position.Limits{
		MaxPerSymbol:         cfg.Risk.MaxPositionsPerSymbol,
		MaxTotal:             cfg.Risk.MaxOpenPositions,
		MaxPortfolioExposure: cfg.Risk.MaxPortfolioExposure,
	}, 100000)

	strategies, weights := buildEnsemble(cfg.Strategies.Enabled)
	combiner := strategy.NewCombiner(strategies, weights)

	builders := make(map[string]*candle.Builder)
	pipelines := []*supervisor.Pipeline{}
	scorers := make(map[string]screening.Scorer)
	screenSymbols := make(map[string][]string)
	metricsReg := metrics.New(prometheus.DefaultRegisterer)

	binanceClient := exchange.NewBinanceClient("", "", cfg.Exchanges.Binance.Testnet)
	binanceTrader, err := exchange.NewTrader("binance", strategies[0], cfg.Trading.MaxOrderSize, cfg.Trading.ConfidenceThreshold)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct binance trader")
	}
	binanceTrader.AddExchange(binanceClient)

	binanceBuilder := candle.NewBuilder(time.Minute, 200)
	builders["binance"] = binanceBuilder
	binanceActor := market.NewActor(market.NewBinanceStream(cfg.Exchanges.Binance.Testnet), cfg.Trading.Symbols, log.Logger)
	binanceExec := executor.New(executorConfig(cfg), binanceTrader, binanceTrader, positions, log.Logger)

	pipelines = append(pipelines, &supervisor.Pipeline{
		Name:     "binance",
		Actor:    binanceActor,
		Builder:  binanceBuilder,
		Combiner: combiner,
		Executor: binanceExec,
		Trader:   binanceTrader,
		Symbols:  cfg.Trading.Symbols,
	})
	scorers["binance"] = screening.NewCandleScorer(binanceBuilder)
	screenSymbols["binance"] = cfg.Trading.Symbols

	if cfg.Exchanges.Dydx != nil {
		dydxClient := exchange.NewDydxClient("")
		dydxTrader, err := exchange.NewTrader("dydx", strategies[0], cfg.Trading.MaxOrderSize, cfg.Trading.ConfidenceThreshold)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to construct dydx trader")
		}
		dydxTrader.AddExchange(dydxClient)

		dydxBuilder := candle.NewBuilder(time.Minute, 200)
		builders["dydx"] = dydxBuilder
		dydxActor := market.NewActor(market.NewDydxStream(5*time.Second), cfg.Trading.Symbols, log.Logger)
		dydxExec := executor.New(executorConfig(cfg), dydxTrader, dydxTrader, positions, log.Logger)

		pipelines = append(pipelines, &supervisor.Pipeline{
			Name:     "dydx",
			Actor:    dydxActor,
			Builder:  dydxBuilder,
			Combiner: combiner,
			Executor: dydxExec,
			Trader:   dydxTrader,
			Symbols:  cfg.Trading.Symbols,
		})
		scorers["dydx"] = screening.NewCandleScorer(dydxBuilder)
		screenSymbols["dydx"] = cfg.Trading.Symbols
	}

	if cfg.Exchanges.Coinbase != nil {
		coinbaseClient, err := buildCoinbaseClient(cfg.Exchanges.Coinbase)
		if err != nil {
			log.Error().Err(err).Msg("coinbase client disabled")
		} else {
			coinbaseTrader, err := exchange.NewTrader("coinbase", strategies[0], cfg.Trading.MaxOrderSize, cfg.Trading.ConfidenceThreshold)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to construct coinbase trader")
			}
			coinbaseTrader.AddExchange(coinbaseClient)

			coinbaseBuilder := candle.NewBuilder(time.Minute, 200)
			builders["coinbase"] = coinbaseBuilder
			coinbaseActor := market.NewActor(market.NewCoinbaseStream(5*time.Second), cfg.Trading.Symbols, log.Logger)
			coinbaseExec := executor.New(executorConfig(cfg), coinbaseTrader, coinbaseTrader, positions, log.Logger)

			pipelines = append(pipelines, &supervisor.Pipeline{
				Name:     "coinbase",
				Actor:    coinbaseActor,
				Builder:  coinbaseBuilder,
				Combiner: combiner,
				Executor: coinbaseExec,
				Trader:   coinbaseTrader,
				Symbols:  cfg.Trading.Symbols,
			})
			scorers["coinbase"] = screening.NewCandleScorer(coinbaseBuilder)
			screenSymbols["coinbase"] = cfg.Trading.Symbols
		}
	}

	reconciler := reconcile.New(reconcile.DefaultConfig(), &pipelineBalanceFetcher{pipelines: pipelines}, reconRepo, zapLogger)

	screeningCache := screening.NewCache(screenSymbols, &routedScorer{byExchange: scorers}, screeningRepo, cfg.Screening.Interval, log.Logger)

	sup := supervisor.New(supervisor.Config{
		Pipelines:  pipelines,
		Positions:  positions,
		Reconciler: reconciler,
		Screening:  screeningCache,
		Metrics:    metricsReg,
		Trades:     trades,
		AuditLog:   auditLog,
		Logger:     log.Logger,
	})

	apiServer := api.NewServer(api.Config{
		Port:               cfg.API.Port,
		APIKeys:            cfg.API.APIKeys,
		RateLimitPerMinute: cfg.API.RateLimitPerMinute,
		ShutdownTimeout:    shutdownGracePeriod,
	}, sup, screeningCache)

	ctx, cancel := context.WithCancel(context.Background())

	go sup.Run(ctx)

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	log.Info().Str("port", cfg.API.Port).Int("exchanges", len(pipelines)).Msg("tradecore engine started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("tradecore engine stopped")
}

func executorConfig(cfg *config.Config) executor.Config {
	return executor.Config{
		Symbols:             cfg.Trading.Symbols,
		ConfidenceThreshold: cfg.Trading.ConfidenceThreshold,
		MaxPerHour:          cfg.Trading.MaxPerHour,
		MaxPerDay:           cfg.Trading.MaxPerDay,
		PortfolioPercentage: cfg.Trading.PortfolioPercentage,
		MaxOrderSize:        cfg.Trading.MaxOrderSize,
		MinOrderSize:        cfg.Trading.MinOrderSize,
		MinQuantity:         cfg.Trading.MinQuantity,
		SlippagePct:         cfg.Trading.SlippagePct,
		MaxRetryAttempts:    cfg.Trading.MaxRetryAttempts,
		RetryDelay:          time.Duration(cfg.Trading.RetryDelayMS) * time.Millisecond,
		MaxLeverage:         cfg.Trading.MaxLeverage,
		RequiredLeverage:    cfg.Trading.RequiredLeverage,
	}
}

func buildEnsemble(enabled []string) ([]strategy.Strategy, []float64) {
	available := map[string]strategy.Strategy{
		"FastScalping":         strategy.NewFastScalping(),
		"MomentumScalping":     strategy.NewMomentumScalping(),
		"ConservativeScalping": strategy.NewConservativeScalping(),
		"TrendFollowing":       strategy.NewMomentumScalping(),
		"MeanReversion":        strategy.NewConservativeScalping(),
		"Breakout":             strategy.NewFastScalping(),
	}

	var strategies []strategy.Strategy
	for _, name := range enabled {
		if s, ok := available[name]; ok {
			strategies = append(strategies, s)
		}
	}
	if len(strategies) == 0 {
		strategies = []strategy.Strategy{
			strategy.NewFastScalping(),
			strategy.NewMomentumScalping(),
			strategy.NewConservativeScalping(),
		}
	}

	weights := make([]float64, len(strategies))
	for i := range weights {
		weights[i] = 1.0
	}
	return strategies, weights
}

func buildCoinbaseClient(cfg *config.CoinbaseConfig) (*exchange.CoinbaseClient, error) {
	if cfg.APIKey != "" && cfg.APISecret != "" && cfg.Passphrase != "" {
		return exchange.NewCoinbaseClient(cfg.APIKey, cfg.APISecret, cfg.Passphrase)
	}
	return exchange.NewCoinbaseClient(cfg.AdvancedAPIKey, cfg.AdvancedAPISecret, "")
}

// pipelineBalanceFetcher adapts each pipeline's Trader into
// reconcile.BalanceFetcher, dispatching on the exchange name since each
// Trader in this wiring holds exactly one registered client.
type pipelineBalanceFetcher struct {
	pipelines []*supervisor.Pipeline
}

func (f *pipelineBalanceFetcher) FetchExchangeBalances(ctx context.Context, exchangeName string) (map[string]float64, error) {
	for _, p := range f.pipelines {
		if p.Name != exchangeName {
			continue
		}
		balances, err := p.Trader.GetBalance(ctx, "")
		if err != nil {
			return nil, err
		}
		out := make(map[string]float64, len(balances))
		for _, b := range balances {
			out[b.Currency] = b.Available.Float64()
		}
		return out, nil
	}
	return map[string]float64{}, nil
}

// routedScorer dispatches screening.Scorer calls to the CandleScorer for
// the requested exchange, since each exchange's candle history is tracked
// by its own Candle Builder.
type routedScorer struct {
	byExchange map[string]screening.Scorer
}

func (r *routedScorer) Score(ctx context.Context, exchangeName, symbol string) (volatility, volume, spread, momentum float64, err error) {
	s, ok := r.byExchange[exchangeName]
	if !ok {
		return 0, 0, 0, 0, errUnknownExchange(exchangeName)
	}
	return s.Score(ctx, exchangeName, symbol)
}

type errUnknownExchange string

func (e errUnknownExchange) Error() string { return "screening: unknown exchange " + string(e) }
