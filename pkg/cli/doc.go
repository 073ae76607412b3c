// Package cli implements the invsync command line.
//
// # Commands
//
// refresh - fetch the source once and write the inventory:
//
//	invsync -c invsync.yaml refresh [--output TARGET] [--style inventory|ansible] [--format json|yaml|table]
//
// Without --output every output of the configuration is written.
//
// export - render a snapshot, from the state file or a live fetch:
//
//	invsync export --from-state state.cbor.zst [--style ansible]
//	invsync -c invsync.yaml export --list
//	invsync -c invsync.yaml export --host R1
//
// --list and --host implement the Ansible dynamic inventory script protocol.
//
// diff - compare two inventory documents:
//
//	invsync diff OLD NEW [--fail-on-change]
//
// serve - run the daemon in the foreground (same as invsyncd).
//
// config validate - load, validate and summarize the configuration.
//
// # Global Flags
//
//	--config, -c   Configuration file (INVSYNC_CONFIG)
//	--log-level    debug, info, warn or error (LOG_LEVEL)
//	--endpoint     Overrides api_endpoint
//	--group-by     Overrides group_by, repeatable
//	--state-file   Overrides state_file
//
// # Outputs
//
// --output accepts "-" for stdout, a file path (replaced atomically), a
// ConfigMap as cm://namespace/name, or an OCI reference as
// oci://registry/repository:tag.
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/netops-tools/invsync/pkg/cli.version=1.0.0'"
package cli
