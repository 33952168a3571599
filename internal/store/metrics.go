package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	txTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_store_tx_total",
		Help: "Ledger units of work, labeled by outcome",
	}, []string{"outcome"})

	txLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_store_tx_duration_seconds",
		Help:    "Latency of ledger units of work including lock waits",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
)

func observeOutcome(err error) {
	if err != nil {
		txTotal.WithLabelValues("rollback").Inc()
		return
	}
	txTotal.WithLabelValues("commit").Inc()
}
