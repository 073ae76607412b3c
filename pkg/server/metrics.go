// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Inventory routes are labelled by their mux pattern, e.g.
// "GET /v1/hosts/{name}", never by the concrete host name.
var (
	inventoryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invsync_inventory_requests_total",
			Help: "Inventory API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	inventoryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invsync_inventory_request_duration_seconds",
			Help:    "Time to serve an inventory API request from the snapshot cache",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Uncompressed body size; gzip is applied outside this middleware.
	inventoryResponseBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invsync_inventory_response_bytes",
			Help:    "Inventory API response body size before compression",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"route"},
	)

	inventoryInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "invsync_inventory_requests_in_flight",
			Help: "Inventory API requests currently being served",
		},
	)

	throttledRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invsync_inventory_throttled_total",
			Help: "Inventory API requests answered 429 by the rate limiter",
		},
	)

	recoveredPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invsync_inventory_panics_recovered_total",
			Help: "Panics in inventory handlers turned into 500 responses",
		},
	)
)

// metricsMiddleware counts and times each inventory request under its route
// pattern.
func (s *Server) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inventoryInFlight.Inc()
		defer inventoryInFlight.Dec()

		rw := newResponseWriter(w)
		start := time.Now()
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		inventoryRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.Status())).Inc()
		inventoryLatency.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		inventoryResponseBytes.WithLabelValues(route).Observe(float64(rw.Size()))
	}
}
