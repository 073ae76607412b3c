// Package header provides the common resource header for invsync documents.
//
// Persisted snapshots, status responses and update events all carry a
// Kubernetes-style header:
//
//	{
//	  "kind": "InventorySnapshot",
//	  "apiVersion": "inventory.invsync.io/v1",
//	  "metadata": {
//	    "timestamp": "2026-03-01T10:30:00Z",
//	    "version": "v0.4.0",
//	    "digest": "5b1f..."
//	  }
//	}
//
// The rendered inventory document itself has a fixed shape consumed by
// external tooling and carries no header.
package header
