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

// Package defaults provides centralized configuration constants for invsync.
//
// This package defines timeout values, retry parameters, and other configuration
// defaults used across the codebase. Centralizing these values ensures consistency
// and makes tuning easier.
//
// # Timeout Categories
//
// Timeouts are organized by component:
//
//   - Source timeouts: per-request timeout, retries and backoff for the inventory API
//   - Refresh timeouts: bounds on a whole refresh cycle and state persistence
//   - Handler timeouts: For HTTP request processing
//   - Server timeouts: For HTTP server configuration
//   - HTTP client timeouts: For outbound HTTP requests
//   - Sink timeouts: ConfigMap writes, OCI pushes and NATS publishes
//
// # Usage
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.RefreshTimeout)
//	defer cancel()
package defaults
