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

// Package serializer moves rendered inventory documents in and out of the
// process.
//
// # Formats
//
//   - json: indented JSON, map keys sorted by encoding/json
//   - yaml: two-space YAML, map keys sorted by yaml.v3
//   - table: flattened FIELD/VALUE table for terminals (write only)
//
// Marshal is the single encoding path. Every writer calls it, so the bytes
// written to stdout, a file or a ConfigMap for the same value are identical.
//
// # Sinks
//
// NewSink routes an output target to a Serializer:
//
//	""  or "-"            stdout
//	cm://namespace/name   Kubernetes ConfigMap (server-side apply)
//	anything else         local file, replaced atomically
//
//	sink, err := serializer.NewSink("cm://automation/inventory", serializer.FormatJSON)
//	if err != nil {
//		return err
//	}
//	defer serializer.Close(sink)
//	err = sink.Serialize(ctx, doc)
//
// # Readers
//
// FromFile loads a previously written document from a local path, an
// http(s) URL or a ConfigMap URI. The CLI diff command uses it to compare a
// deployed document against a fresh render.
//
// # HTTP
//
// RespondJSON buffers the encoded body before writing the status so a
// marshal failure never produces a partial response. HttpReader builds the
// tuned http.Client shared by the source client and remote reads.
package serializer
