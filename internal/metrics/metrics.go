// Package metrics holds the Prometheus collectors of the back office.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	// ledger adjustments by counter, direction and outcome
	LedgerAdjustments *prometheus.CounterVec
	// index writes by operation and outcome
	IndexSync *prometheus.CounterVec
	// documents found stale during a resync
	IndexDrift prometheus.Counter
	// coupon selections by outcome (selected, none, error)
	CouponSelections *prometheus.CounterVec
	// 0 closed, 1 half-open, 2 open
	BreakerState prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		LedgerAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "ledger",
			Name:      "adjustments_total",
			Help:      "Stock and sold quantity adjustments",
		}, []string{"counter", "direction", "result"}),
		IndexSync: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "index",
			Name:      "sync_total",
			Help:      "Search index writes",
		}, []string{"op", "result"}),
		IndexDrift: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "index",
			Name:      "drift_total",
			Help:      "Documents that differed from the store during resync",
		}),
		CouponSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "coupon",
			Name:      "selections_total",
			Help:      "Best coupon selections",
		}, []string{"result"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "backoffice",
			Subsystem: "index",
			Name:      "breaker_state",
			Help:      "Search index circuit breaker state",
		}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.LedgerAdjustments,
		m.IndexSync,
		m.IndexDrift,
		m.CouponSelections,
		m.BreakerState,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Ledger(counter, direction string, err error) {
	if m == nil {
		return
	}
	m.LedgerAdjustments.WithLabelValues(counter, direction, result(err)).Inc()
}

func (m *Metrics) Sync(op string, err error) {
	if m == nil {
		return
	}
	m.IndexSync.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) Drift(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.IndexDrift.Add(float64(n))
}

func (m *Metrics) Coupon(outcome string) {
	if m == nil {
		return
	}
	m.CouponSelections.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Breaker(state int) {
	if m == nil {
		return
	}
	m.BreakerState.Set(float64(state))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
