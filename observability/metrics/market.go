package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetrics aggregates the engine-level counters exposed on /metrics.
type MarketMetrics struct {
	purchases        *prometheus.CounterVec
	settlementOrders *prometheus.CounterVec
	feeEvasion       prometheus.Counter
	recordSize       prometheus.Gauge
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

// Market returns the process-wide market metrics, registering them on first
// use.
func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "harberger_purchases_total",
				Help: "Count of compulsory purchases by outcome.",
			}, []string{"outcome"}),
			settlementOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "harberger_settlement_orders_total",
				Help: "Count of settlement protocol calls by phase.",
			}, []string{"phase"}),
			feeEvasion: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "harberger_fee_evasion_total",
				Help: "Count of ratifications rejected by the override check.",
			}),
			recordSize: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "harberger_fee_record_size",
				Help: "Number of live entries on the fee record.",
			}),
		}
		prometheus.MustRegister(
			marketRegistry.purchases,
			marketRegistry.settlementOrders,
			marketRegistry.feeEvasion,
			marketRegistry.recordSize,
		)
	})
	return marketRegistry
}

// ObservePurchase records a purchase attempt outcome ("ok" or "error").
func (m *MarketMetrics) ObservePurchase(outcome string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(outcome).Inc()
}

// ObserveSettlement records one settlement protocol call by phase.
func (m *MarketMetrics) ObserveSettlement(phase string) {
	if m == nil {
		return
	}
	m.settlementOrders.WithLabelValues(phase).Inc()
}

// ObserveFeeEvasion records a ratify rejected by the override check.
func (m *MarketMetrics) ObserveFeeEvasion() {
	if m == nil {
		return
	}
	m.feeEvasion.Inc()
}

// SetRecordSize publishes the current fee record size.
func (m *MarketMetrics) SetRecordSize(n int) {
	if m == nil {
		return
	}
	m.recordSize.Set(float64(n))
}
