package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invsync_refresh_duration_seconds",
			Help:    "Time taken by a complete refresh cycle",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"trigger"},
	)

	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invsync_refresh_total",
			Help: "Total number of refresh cycles by trigger and status",
		},
		[]string{"trigger", "status"}, // success, unchanged, error, cancelled
	)

	refreshCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invsync_refresh_coalesced_total",
			Help: "Refresh requests that joined a cycle already in flight",
		},
	)

	inventoryHosts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "invsync_inventory_hosts",
			Help: "Number of hosts in the published snapshot",
		},
	)

	inventoryGroups = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "invsync_inventory_groups",
			Help: "Number of groups in the published snapshot",
		},
	)

	inventorySkipped = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "invsync_inventory_skipped_records",
			Help: "Source records skipped while building the published snapshot",
		},
	)

	snapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "invsync_snapshot_version",
			Help: "Version of the published snapshot",
		},
	)

	webhookRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invsync_webhook_rejected_total",
			Help: "Webhook requests rejected for a missing or invalid signature",
		},
	)

	lastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "invsync_refresh_last_success_timestamp_seconds",
			Help: "Unix time of the last successful refresh",
		},
	)
)

func observePublished(s *Snapshot) {
	inventoryHosts.Set(float64(len(s.Hosts)))
	inventoryGroups.Set(float64(len(s.Groups)))
	inventorySkipped.Set(float64(len(s.Warnings)))
	snapshotVersion.Set(float64(s.Version))
}
