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

package header

import (
	"time"
)

// APIVersion is the schema version shared by all invsync resources.
const APIVersion = "inventory.invsync.io/v1"

// Kind represents the type of an invsync resource.
type Kind string

const (
	// KindInventorySnapshot is a persisted snapshot in the state file.
	KindInventorySnapshot Kind = "InventorySnapshot"

	// KindInventoryStatus is the body of the status endpoint.
	KindInventoryStatus Kind = "InventoryStatus"

	// KindInventoryUpdate is the event published after each new snapshot.
	KindInventoryUpdate Kind = "InventoryUpdate"
)

// Metadata keys set by Init and the snapshot pipeline.
const (
	MetaTimestamp = "timestamp"
	MetaVersion   = "version"
	MetaDigest    = "digest"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the Kind is one of the recognized kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindInventorySnapshot, KindInventoryStatus, KindInventoryUpdate:
		return true
	default:
		return false
	}
}

// Option is a functional option for configuring Header instances.
type Option func(*Header)

// WithMetadata returns an Option that adds a metadata key-value pair to the Header.
func WithMetadata(key, value string) Option {
	return func(h *Header) {
		if h.Metadata == nil {
			h.Metadata = make(map[string]string)
		}
		h.Metadata[key] = value
	}
}

// WithKind returns an Option that sets the Kind field of the Header.
func WithKind(kind Kind) Option {
	return func(h *Header) {
		h.Kind = kind
	}
}

// WithAPIVersion returns an Option that overrides the default APIVersion.
func WithAPIVersion(version string) Option {
	return func(h *Header) {
		h.APIVersion = version
	}
}

// New creates a Header with the default APIVersion and applies opts.
func New(opts ...Option) *Header {
	h := &Header{
		APIVersion: APIVersion,
		Metadata:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Header contains metadata and versioning information for invsync resources.
// It follows Kubernetes-style resource conventions with Kind, APIVersion, and Metadata fields.
type Header struct {
	// Kind is the type of the object.
	Kind Kind `json:"kind,omitempty" yaml:"kind,omitempty" cbor:"kind,omitempty"`

	// APIVersion is the API version of the object.
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty" cbor:"apiVersion,omitempty"`

	// Metadata contains key-value pairs describing the object.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty" cbor:"metadata,omitempty"`
}

// Init resets the Header to kind, stamping the current UTC time and the
// tool version when non-empty.
func (h *Header) Init(kind Kind, version string) {
	h.InitAt(kind, version, time.Now())
}

// InitAt is Init with an explicit timestamp.
func (h *Header) InitAt(kind Kind, version string, at time.Time) {
	h.Kind = kind
	h.APIVersion = APIVersion
	h.Metadata = map[string]string{
		MetaTimestamp: at.UTC().Format(time.RFC3339),
	}
	if version != "" {
		h.Metadata[MetaVersion] = version
	}
}

// Get returns a metadata value, or "" when unset.
func (h *Header) Get(key string) string {
	if h == nil || h.Metadata == nil {
		return ""
	}
	return h.Metadata[key]
}
