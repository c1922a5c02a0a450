// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	LoadRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "load",
			Name:      "records_total",
			Help:      "Counter of records read by the bulk loader.",
		}, []string{"kind", "result"})

	Purchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "purchases_total",
			Help:      "Counter of purchase attempts by outcome.",
		}, []string{"kind", "outcome"})

	PurgedItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "purged_items_total",
			Help:      "Counter of items removed by brand purges.",
		}, []string{"kind"})

	FileLockWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ledger",
			Subsystem: "file_lock",
			Name:      "wait_seconds",
			Help:      "Bucketed histogram of time (s) spent acquiring advisory file locks.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 13),
		}, []string{"mode"})
)

func init() {
	prometheus.MustRegister(LoadRecords)
	prometheus.MustRegister(Purchases)
	prometheus.MustRegister(PurgedItems)
	prometheus.MustRegister(FileLockWait)
}
