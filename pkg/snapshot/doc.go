// Package snapshot holds the published inventory and the machinery that
// replaces it.
//
// # Snapshot
//
// A Snapshot is an immutable aggregate of hosts, groups and composed
// variables produced by one refresh cycle. Its Digest is a keyed BLAKE3 hash
// of the deterministic CBOR encoding of the content only, so two refreshes of
// unchanged source data yield equal digests while Version still increments.
//
// # Cache
//
// Cache publishes snapshots through a single atomic pointer. Readers call
// Get and never take a lock. Publish checks the candidate's internal
// consistency first: every group member is a known host, every host belongs
// to at least one group and every composed variable names a known host. A
// candidate failing the check is never visible.
//
//	snap, err := cache.Get()
//	if errors.Is(err, errors.ErrCodeNotReady) { ... }
//
// # Refresher
//
// Refresher runs fetch, normalize, group and publish. Concurrent calls to
// Refresh join the cycle already in flight. Each cycle runs under the
// refresher's own lifecycle context bounded by defaults.RefreshTimeout, so
// Close cancels in-flight work and a cancelled or failed cycle publishes
// nothing. The previous snapshot stays authoritative.
//
// # Store
//
// Store persists each published snapshot as zstd-compressed CBOR, replaced
// atomically, and restores it on start so consumers are served the
// last-known-good inventory before the first refresh completes.
package snapshot
