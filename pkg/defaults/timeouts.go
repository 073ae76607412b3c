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

package defaults

import "time"

// Source client defaults for requests against the inventory API.
const (
	// SourceRequestTimeout is the default per-request timeout. Exceeding it
	// is a retryable network failure.
	SourceRequestTimeout = 30 * time.Second

	// SourceMaxRetries is the default number of retries after the first
	// attempt of a single request.
	SourceMaxRetries = 3

	// SourceBackoffBase is the first backoff delay; each retry doubles it.
	SourceBackoffBase = 500 * time.Millisecond

	// SourceBackoffMax caps a single backoff delay.
	SourceBackoffMax = 30 * time.Second

	// SourceRateLimitBackoff is used when a 429 carries no Retry-After.
	SourceRateLimitBackoff = 5 * time.Second

	// SourcePageSize is the default page size for list endpoints.
	SourcePageSize = 250

	// SourceRequestsPerSecond bounds outbound request rate.
	SourceRequestsPerSecond = 10
)

// Refresh cycle defaults.
const (
	// RefreshTimeout bounds a whole refresh cycle, across all pages and retries.
	RefreshTimeout = 5 * time.Minute

	// RefreshMinInterval is the smallest accepted timer interval.
	RefreshMinInterval = 10 * time.Second

	// StateWriteTimeout bounds persisting a published snapshot to disk.
	StateWriteTimeout = 10 * time.Second
)

// Handler timeouts for HTTP request processing.
const (
	// InventoryHandlerTimeout is the timeout for rendering inventory responses.
	InventoryHandlerTimeout = 15 * time.Second

	// RefreshHandlerTimeout is how long POST /v1/refresh waits for the
	// coalesced refresh before answering 202.
	RefreshHandlerTimeout = 60 * time.Second

	// RenderCacheSize is the number of rendered documents kept in memory.
	RenderCacheSize = 32
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout must exceed RefreshHandlerTimeout.
	ServerWriteTimeout = 90 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// HTTP client timeouts for outbound requests.
const (
	// HTTPClientTimeout is the default total timeout for HTTP requests.
	HTTPClientTimeout = 30 * time.Second

	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPResponseHeaderTimeout is the timeout for reading response headers.
	HTTPResponseHeaderTimeout = 20 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive duration for connections.
	HTTPKeepAlive = 30 * time.Second
)

// Output sink timeouts.
const (
	// ConfigMapWriteTimeout is the timeout for writing to ConfigMaps.
	ConfigMapWriteTimeout = 30 * time.Second

	// OCIPushTimeout is the timeout for pushing a document to a registry.
	OCIPushTimeout = 2 * time.Minute

	// NATSConnectTimeout is the timeout for connecting to NATS.
	NATSConnectTimeout = 10 * time.Second

	// NATSPublishTimeout bounds a single update event publish.
	NATSPublishTimeout = 5 * time.Second

	// NATSReconnectWait is the pause between reconnect attempts.
	NATSReconnectWait = 2 * time.Second
)
