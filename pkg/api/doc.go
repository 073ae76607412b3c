// Package api wires the invsync daemon together.
//
// The daemon restores the last-known-good snapshot from the state file,
// starts serving immediately and kicks off a startup refresh. Afterwards
// refreshes are started by the timer, by POST /v1/refresh, by a source
// webhook, by a NATS message or by SIGHUP. Every published snapshot is
// written to the configured outputs and announced on NATS.
//
// # Usage
//
//	if err := api.Serve(ctx, "/etc/invsync/config.yaml"); err != nil {
//	    log.Fatalf("server error: %v", err)
//	}
//
// # Endpoints
//
// Application endpoints (with rate limiting):
//   - GET /v1/inventory     - rendered inventory; format=json|yaml, style=inventory|ansible
//   - GET /v1/hosts/{name}  - hostvars of one host
//   - POST /v1/refresh      - run a refresh and report the result
//   - GET /v1/status        - refresh status
//   - POST /v1/webhook      - source change notification, HMAC-SHA512 signed
//
// System endpoints (no rate limiting):
//   - GET /health  - liveness
//   - GET /ready   - 200 once a snapshot is published
//   - GET /metrics - Prometheus metrics
//
// # Supervision
//
// Under systemd the daemon sends READY=1 once it serves, STOPPING=1 on
// shutdown and WATCHDOG=1 at half of WatchdogSec when enabled.
//
// Version information is set at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/netops-tools/invsync/pkg/api.version=1.0.0'"
package api
