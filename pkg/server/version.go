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
	"mime"
	"net/http"
	"strings"
)

const (
	// DefaultAPIVersion is served when the client asks for no version or an
	// unknown one.
	DefaultAPIVersion = "v1"

	// HeaderAPIVersion names the served API version in responses.
	HeaderAPIVersion = "X-API-Version"

	vendorMediaPrefix = "application/vnd.invsync."
)

// negotiateAPIVersion picks the API version from vendor media types in the
// Accept header, for example application/vnd.invsync.v1+json. The first
// served version listed wins.
func negotiateAPIVersion(r *http.Request) string {
	for _, entry := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(entry))
		if err != nil || !strings.HasPrefix(mediaType, vendorMediaPrefix) {
			continue
		}
		version, _, _ := strings.Cut(strings.TrimPrefix(mediaType, vendorMediaPrefix), "+")
		if isValidAPIVersion(version) {
			return version
		}
	}
	return DefaultAPIVersion
}

// isValidAPIVersion reports whether version is served. Only v1 exists.
func isValidAPIVersion(version string) bool {
	return version == DefaultAPIVersion
}

// SetAPIVersionHeader records the served API version on the response.
func SetAPIVersionHeader(w http.ResponseWriter, version string) {
	w.Header().Set(HeaderAPIVersion, version)
}
