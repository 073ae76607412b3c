package codec

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 content hash.
type Digest [32]byte

// snapshotDomainKey separates snapshot digests from any other BLAKE3 use.
var snapshotDomainKey = [32]byte{
	'i', 'n', 'v', 's', 'y', 'n', 'c', '.', 'i', 'n', 'v', 'e', 'n', 't', 'o', 'r',
	'y', '.', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', 0, 0, 0, 0, 0, 0,
}

// String returns the lowercase hex form of d.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, for logs.
func (d Digest) Short() string {
	return d.String()[:12]
}

// IsZero reports whether d is unset.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest parses a hex-encoded digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	if len(b) != len(d) {
		return d, fmt.Errorf("invalid digest %q: want %d bytes, got %d", s, len(d), len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Sum returns the keyed BLAKE3 digest of the deterministic CBOR encoding of v.
func Sum(v any) (Digest, error) {
	data, err := Marshal(v)
	if err != nil {
		return Digest{}, fmt.Errorf("encoding for digest: %w", err)
	}
	return SumBytes(data), nil
}

// SumBytes returns the keyed BLAKE3 digest of data.
func SumBytes(data []byte) Digest {
	// NewKeyed only fails for keys that are not 32 bytes long.
	hasher, err := blake3.NewKeyed(snapshotDomainKey[:])
	if err != nil {
		panic("codec: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = hasher.Write(data)
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}
