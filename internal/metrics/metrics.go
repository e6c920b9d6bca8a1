// Package metrics exposes Prometheus gauges and counters for the engine's
// exchange health, order execution, reconciliation, and screening
// activity. Grounded on FOTONPHOTOS-PULSEINTEL/go_Stream's
// prometheus_metrics.go: a struct of registered vectors with narrow
// Record*/Set* methods, registered once at construction.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every registered collector the engine updates.
type Metrics struct {
	ExchangeStatus       *prometheus.GaugeVec
	ExchangeReconnects   *prometheus.CounterVec
	OrdersPlaced         *prometheus.CounterVec
	OrdersRejected       *prometheus.CounterVec
	OrderPlacementLatency *prometheus.HistogramVec
	OpenPositions        *prometheus.GaugeVec
	PortfolioExposure    prometheus.Gauge
	ReconciliationStatus *prometheus.GaugeVec
	ReconciliationCount  *prometheus.CounterVec
	ScreeningScore       *prometheus.GaugeVec
	SupervisorUptime     prometheus.Gauge
}

// New constructs and registers every collector against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExchangeStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tradecore_exchange_status",
			Help: "Exchange connection status (1=connected, 0=disconnected)",
		}, []string{"exchange"}),

		ExchangeReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecore_exchange_reconnects_total",
			Help: "Total number of exchange stream reconnections",
		}, []string{"exchange"}),

		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecore_orders_placed_total",
			Help: "Total number of orders placed",
		}, []string{"exchange", "symbol", "side"}),

		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecore_orders_rejected_total",
			Help: "Total number of signals rejected before order placement",
		}, []string{"symbol", "reason"}),

		OrderPlacementLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradecore_order_placement_latency_seconds",
			Help:    "Time from signal to confirmed order placement",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"exchange", "symbol"}),

		OpenPositions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tradecore_open_positions",
			Help: "Number of currently open positions",
		}, []string{"symbol"}),

		PortfolioExposure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradecore_portfolio_exposure_ratio",
			Help: "Total open-position notional as a fraction of portfolio value",
		}),

		ReconciliationStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tradecore_reconciliation_status",
			Help: "Most recent reconciliation status per exchange (0=ok,1=minor,2=major,3=critical)",
		}, []string{"exchange"}),

		ReconciliationCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecore_reconciliation_discrepancies_total",
			Help: "Total discrepancies found during reconciliation",
		}, []string{"exchange", "kind"}),

		ScreeningScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tradecore_screening_overall_score",
			Help: "Most recent overall screening score per symbol",
		}, []string{"exchange", "symbol"}),

		SupervisorUptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradecore_supervisor_uptime_seconds",
			Help: "Seconds since the supervisor started",
		}),
	}

	reg.MustRegister(
		m.ExchangeStatus, m.ExchangeReconnects,
		m.OrdersPlaced, m.OrdersRejected, m.OrderPlacementLatency,
		m.OpenPositions, m.PortfolioExposure,
		m.ReconciliationStatus, m.ReconciliationCount,
		m.ScreeningScore, m.SupervisorUptime,
	)
	return m
}

// SetExchangeStatus records whether exchange's stream is currently connected.
func (m *Metrics) SetExchangeStatus(exchange string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	m.ExchangeStatus.WithLabelValues(exchange).Set(v)
}

// RecordReconnect increments exchange's reconnect counter.
func (m *Metrics) RecordReconnect(exchange string) {
	m.ExchangeReconnects.WithLabelValues(exchange).Inc()
}

// RecordOrderPlaced records a successfully routed order and its latency.
func (m *Metrics) RecordOrderPlaced(exchange, symbol, side string, latency time.Duration) {
	m.OrdersPlaced.WithLabelValues(exchange, symbol, side).Inc()
	m.OrderPlacementLatency.WithLabelValues(exchange, symbol).Observe(latency.Seconds())
}

// RecordOrderRejected records a signal that never reached order placement.
func (m *Metrics) RecordOrderRejected(symbol, reason string) {
	m.OrdersRejected.WithLabelValues(symbol, reason).Inc()
}

// SetOpenPositions records the current open-position count for symbol.
func (m *Metrics) SetOpenPositions(symbol string, count int) {
	m.OpenPositions.WithLabelValues(symbol).Set(float64(count))
}

// SetPortfolioExposure records the current total exposure ratio.
func (m *Metrics) SetPortfolioExposure(ratio float64) {
	m.PortfolioExposure.Set(ratio)
}

// RecordReconciliation records a completed reconciliation report: its
// rolled-up status and a per-kind discrepancy count.
func (m *Metrics) RecordReconciliation(exchange string, status int, discrepancyKinds map[string]int) {
	m.ReconciliationStatus.WithLabelValues(exchange).Set(float64(status))
	for kind, count := range discrepancyKinds {
		m.ReconciliationCount.WithLabelValues(exchange, kind).Add(float64(count))
	}
}

// SetScreeningScore records a symbol's most recent overall screening score.
func (m *Metrics) SetScreeningScore(exchange, symbol string, score float64) {
	m.ScreeningScore.WithLabelValues(exchange, symbol).Set(score)
}

// SetUptime records seconds elapsed since the supervisor started.
func (m *Metrics) SetUptime(d time.Duration) {
	m.SupervisorUptime.Set(d.Seconds())
}
