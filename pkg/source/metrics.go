package source

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invsync_source_requests_total",
			Help: "Total number of source API requests by resource and outcome",
		},
		[]string{"resource", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invsync_source_request_duration_seconds",
			Help:    "Source API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invsync_source_retries_total",
			Help: "Total number of source API request retries by resource and error code",
		},
		[]string{"resource", "code"},
	)

	recordsFetched = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "invsync_source_records",
			Help: "Number of records returned by the last successful fetch per resource",
		},
		[]string{"resource"},
	)
)
