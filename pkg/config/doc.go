// Package config loads and validates invsync configuration.
//
// Configuration comes from, in increasing precedence:
//
//  1. a YAML (.yaml, .yml) or JSON-with-comments (.json, .jsonc) file
//  2. INVSYNC_* environment variables (NETBOX_API and NETBOX_TOKEN are
//     accepted as fallbacks)
//  3. overrides supplied by the caller, typically CLI flags
//
// Example:
//
//	api_endpoint: https://netbox.example.com
//	token_file: /run/secrets/netbox-token.age
//	token_identity_file: /etc/invsync/identity.txt
//	group_by: [manufacturer, site, tags]
//	compose:
//	  ansible_network_os:
//	    source: platform
//	    map: {ios: cisco.ios.ios, vyos: vyos.vyos.vyos}
//	  site_code: site
//	group_vars:
//	  manufacturers_cisco: {ansible_connection: network_cli}
//	refresh_interval: 5m
//	request_timeout: 30s
//	max_retries: 3
//
// The token is held as a Secret, which renders as [REDACTED] in logs, fmt
// verbs and serialized output.
package config
