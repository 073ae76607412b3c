// Copyright 2026 The invsync Authors.
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

package snapshot

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/netops-tools/invsync/pkg/codec"
	"github.com/netops-tools/invsync/pkg/header"
	"github.com/netops-tools/invsync/pkg/serializer"
)

// stateFormat is bumped when the persisted layout changes incompatibly.
const stateFormat = "1"

type persisted struct {
	Header   header.Header `cbor:"1,keyasint"`
	Snapshot *Snapshot     `cbor:"2,keyasint"`
}

// Store persists the last published snapshot to a single file.
type Store struct {
	path string
}

// NewStore returns a Store writing to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes snap as zstd-compressed CBOR, replacing the file atomically.
func (s *Store) Save(snap *Snapshot) error {
	h := header.New(
		header.WithKind(header.KindInventorySnapshot),
		header.WithMetadata(header.MetaVersion, stateFormat),
		header.WithMetadata(header.MetaDigest, snap.Digest.String()),
		header.WithMetadata(header.MetaTimestamp, snap.CreatedAt.Format(time.RFC3339)),
	)
	data, err := codec.MarshalCompressed(persisted{Header: *h, Snapshot: snap})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := serializer.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Load reads the state file. A missing file returns an error matching
// fs.ErrNotExist. The digest is recomputed so a damaged or tampered file is
// rejected rather than served.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var p persisted
	if err := codec.UnmarshalCompressed(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode state file %s: %w", s.path, err)
	}
	if p.Header.Kind != header.KindInventorySnapshot {
		return nil, fmt.Errorf("state file %s holds %q, want %q", s.path, p.Header.Kind, header.KindInventorySnapshot)
	}
	if v := p.Header.Get(header.MetaVersion); v != stateFormat {
		return nil, fmt.Errorf("state file %s has format %s, want %s", s.path, strconv.Quote(v), stateFormat)
	}
	if p.Snapshot == nil {
		return nil, fmt.Errorf("state file %s holds no snapshot", s.path)
	}

	d, err := p.Snapshot.contentDigest()
	if err != nil {
		return nil, err
	}
	if d != p.Snapshot.Digest {
		return nil, fmt.Errorf("state file %s digest mismatch: stored %s, computed %s",
			s.path, p.Snapshot.Digest.Short(), d.Short())
	}
	if err := p.Snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("state file %s is inconsistent: %w", s.path, err)
	}
	p.Snapshot.Restored = true
	return p.Snapshot, nil
}
