package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	gatherer        prometheus.Gatherer
	tradesImported  prometheus.Counter
	importFailures  *prometheus.CounterVec
	tradeMutations  *prometheus.CounterVec
	importDurations prometheus.Histogram
}

func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		tradesImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "logitrades",
			Name:      "trades_imported_total",
			Help:      "Trades stored by successful imports.",
		}),
		importFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logitrades",
			Name:      "import_failures_total",
			Help:      "Aborted imports by the stage that rejected them.",
		}, []string{"stage"}),
		tradeMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logitrades",
			Name:      "trade_mutations_total",
			Help:      "Single trade writes by operation.",
		}, []string{"op"}),
		importDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "logitrades",
			Name:      "import_duration_seconds",
			Help:      "Wall time of import requests.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.tradesImported, m.importFailures, m.tradeMutations, m.importDurations)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) TradesImported(n int) {
	if m == nil {
		return
	}
	m.tradesImported.Add(float64(n))
}

func (m *Metrics) ImportFailed(stage string) {
	if m == nil {
		return
	}
	m.importFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) TradeMutated(op string) {
	if m == nil {
		return
	}
	m.tradeMutations.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveImport(seconds float64) {
	if m == nil {
		return
	}
	m.importDurations.Observe(seconds)
}
