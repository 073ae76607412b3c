// Package codec provides the binary encoding used for inventory snapshots.
//
// Snapshots are encoded as Core Deterministic CBOR (RFC 8949 section 4.2.1):
// map keys are sorted and integers use their shortest form, so equal values
// always produce equal bytes. Content digests are keyed BLAKE3 hashes over
// that encoding, which makes them stable across processes and restarts.
//
// Persisted state is the CBOR encoding compressed with zstd.
package codec
