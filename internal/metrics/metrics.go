// Package metrics holds Prometheus instruments that are used across the
// console.  All collectors are registered with the global registry, so
// serving promhttp.Handler() on /metrics is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReportsLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scanreports_loaded",
			Help: "Number of scan reports in memory, by partition.",
		}, []string{"partition"})

	BatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanreports_batch_requests_total",
			Help: "Cumulative number of id__in lookup requests, by stage.",
		}, []string{"stage"})

	BatchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanreports_batch_failures_total",
			Help: "Cumulative number of failed id__in lookup requests, by stage.",
		}, []string{"stage"})

	LoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scanreports_load_duration_seconds",
			Help:    "Wall time of a complete three-stage load.",
			Buckets: prometheus.DefBuckets,
		})

	LoadFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scanreports_load_failures_total",
			Help: "Cumulative number of loads that ended in an error.",
		})

	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanreports_mutations_total",
			Help: "Cumulative number of settled status and archive mutations.",
		}, []string{"field", "outcome"})

	ConsoleRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "Cumulative number of console HTTP requests, by method and device class.",
		}, []string{"method", "device"})
)

func init() {
	prometheus.MustRegister(
		ReportsLoaded,
		BatchRequestsTotal,
		BatchFailuresTotal,
		LoadDuration,
		LoadFailuresTotal,
		MutationsTotal,
		ConsoleRequestsTotal,
	)
}
