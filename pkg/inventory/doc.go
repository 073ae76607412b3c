// Package inventory defines the canonical inventory model and the normalizer
// that turns raw source records into hosts.
//
// Raw device and virtual machine records arrive as JSON objects exactly as the
// source API returns them. Normalize checks each record against an embedded
// JSON schema, reduces nested references (manufacturer, site, role, platform,
// primary address) to slugs and produces sorted, de-duplicated Hosts. Records
// that cannot be normalized are skipped and reported as SkipReasons; they never
// fail the whole refresh.
//
//	hosts, skipped := inventory.Normalize(raw)
//	for _, s := range skipped {
//	    slog.Warn("record skipped", "resource", s.Resource, "index", s.Index, "reason", s.Reason)
//	}
package inventory
