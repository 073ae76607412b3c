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

// Package server hosts the invsync HTTP surface.
//
// The server itself owns only the system routes and the middleware chain.
// Domain handlers are supplied by their packages and registered with
// WithHandler:
//
//	s := server.New(
//	    server.WithName("invsyncd"),
//	    server.WithVersion(version),
//	    server.WithHandler(map[string]http.HandlerFunc{
//	        "/v1/inventory": inventoryHandler.ServeHTTP,
//	        "/v1/refresh":   refresher.HandleRefresh,
//	    }),
//	    server.WithReadiness(cache.Ready),
//	)
//	if err := s.Run(ctx); err != nil {
//	    return err
//	}
//
// # System Endpoints
//
// GET /health always answers 200 while the process is serving.
//
// GET /ready answers 200 once the listener is up and the readiness check
// passes, 503 otherwise. The daemon reports not ready until the first
// inventory snapshot has been published.
//
// GET /metrics exposes Prometheus metrics.
//
// # Middleware
//
// Registered handlers run behind, outermost first: metrics, API version
// negotiation, request ID, panic recovery, rate limiting and request
// logging. Responses are gzip compressed when the client accepts it.
//
// Request IDs are taken from X-Request-Id when it holds a UUID and
// generated otherwise. They are echoed in the response header and in
// every error body.
//
// # Errors
//
// Errors are answered as ErrorResponse JSON. WriteErrorFromErr maps the
// error codes of pkg/errors to HTTP statuses; failures reaching the
// inventory source map to 502 and 504 because they are upstream failures
// from the client's point of view.
//
// # Configuration
//
// PORT and SHUTDOWN_TIMEOUT_SECONDS override the defaults of NewConfig.
package server
