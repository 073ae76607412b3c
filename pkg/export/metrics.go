package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invsync_render_cache_hits_total",
			Help: "Inventory requests answered from the render cache",
		},
	)

	renderCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invsync_render_cache_misses_total",
			Help: "Inventory requests that rendered and encoded a document",
		},
	)
)
