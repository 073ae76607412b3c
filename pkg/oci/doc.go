// Package oci publishes rendered inventory documents as OCI artifacts.
//
// A document becomes a single-layer OCI 1.1 artifact with artifact type
// application/vnd.invsync.inventory.v1. Automation runners pull it with any
// ORAS-compatible client, which decouples them from the daemon's HTTP API:
//
//	oras pull ghcr.io/netops/inventory:latest
//
// Targets use the oci:// scheme and a missing tag means "latest":
//
//	sink, err := oci.NewSink("oci://ghcr.io/netops/inventory:prod", serializer.FormatJSON)
//
// Registry credentials come from the Docker credential store, so
// `docker login` or `oras login` is enough.
package oci
