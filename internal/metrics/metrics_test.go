package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordOrderPlacedIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordOrderPlaced("binance", "BTC-USD", "buy", 50*time.Millisecond)

	metric := &dto.Metric{}
	if err := m.OrdersPlaced.WithLabelValues("binance", "BTC-USD", "buy").Write(metric); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("expected counter value 1, got %v", metric.Counter.GetValue())
	}
}

func TestSetExchangeStatusReflectsConnectivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetExchangeStatus("binance", true)
	metric := &dto.Metric{}
	m.ExchangeStatus.WithLabelValues("binance").Write(metric)
	if metric.Gauge.GetValue() != 1 {
		t.Errorf("expected gauge 1 for connected, got %v", metric.Gauge.GetValue())
	}

	m.SetExchangeStatus("binance", false)
	m.ExchangeStatus.WithLabelValues("binance").Write(metric)
	if metric.Gauge.GetValue() != 0 {
		t.Errorf("expected gauge 0 for disconnected, got %v", metric.Gauge.GetValue())
	}
}
