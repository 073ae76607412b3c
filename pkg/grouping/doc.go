// Package grouping derives inventory groups and composed host variables from
// declarative rules.
//
// Rules are a closed set of variants, GroupBy and Compose, evaluated in
// declaration order by a pure interpreter. The same hosts and rules always
// produce the same groups.
//
// Group names take the form <prefix>_<value>, lower-cased, with every
// character outside [a-z0-9_] replaced by an underscore. Known attributes use
// the source's plural collection name as prefix:
//
//	manufacturer -> manufacturers_cisco
//	site         -> sites_fra1
//	role         -> device_roles_edge_router
//	platform     -> platforms_ios
//	tags         -> tags_core (one group per tag)
//	status       -> status_active
//
// Hosts that land in no attribute group are placed in the reserved "ungrouped"
// group. The reserved "all" group lists every other group as a child.
package grouping
