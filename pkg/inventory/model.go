package inventory

import (
	"cmp"
	"encoding/json"
	"slices"
)

// HostKind distinguishes physical devices from virtual machines.
type HostKind string

const (
	KindDevice         HostKind = "device"
	KindVirtualMachine HostKind = "virtual_machine"
)

// Host is a single managed endpoint as seen by the automation engine.
// Hosts are rebuilt wholesale on every refresh and never mutated in place.
type Host struct {
	ID           int               `json:"id" yaml:"id" cbor:"1,keyasint"`
	Name         string            `json:"name" yaml:"name" cbor:"2,keyasint"`
	Kind         HostKind          `json:"kind" yaml:"kind" cbor:"3,keyasint"`
	Platform     string            `json:"platform" yaml:"platform" cbor:"4,keyasint"`
	Manufacturer string            `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty" cbor:"5,keyasint,omitempty"`
	Site         string            `json:"site,omitempty" yaml:"site,omitempty" cbor:"6,keyasint,omitempty"`
	Role         string            `json:"role,omitempty" yaml:"role,omitempty" cbor:"7,keyasint,omitempty"`
	Status       string            `json:"status,omitempty" yaml:"status,omitempty" cbor:"8,keyasint,omitempty"`
	Address      string            `json:"address,omitempty" yaml:"address,omitempty" cbor:"9,keyasint,omitempty"`
	Tags         []string          `json:"tags,omitempty" yaml:"tags,omitempty" cbor:"10,keyasint,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty" cbor:"11,keyasint,omitempty"`
}

// Group is a named set of hosts derived from grouping rules.
type Group struct {
	Name     string         `json:"name" yaml:"name" cbor:"1,keyasint"`
	Hosts    []string       `json:"hosts" yaml:"hosts" cbor:"2,keyasint"`
	Children []string       `json:"children,omitempty" yaml:"children,omitempty" cbor:"3,keyasint,omitempty"`
	Vars     map[string]any `json:"vars,omitempty" yaml:"vars,omitempty" cbor:"4,keyasint,omitempty"`
}

// ComposedVariable is a per-host variable computed from host fields.
type ComposedVariable struct {
	Host  string `json:"host" yaml:"host" cbor:"1,keyasint"`
	Name  string `json:"name" yaml:"name" cbor:"2,keyasint"`
	Value string `json:"value" yaml:"value" cbor:"3,keyasint"`
}

// SkipReason records why a raw record was left out of the inventory.
type SkipReason struct {
	Resource string `json:"resource" yaml:"resource" cbor:"1,keyasint"`
	Index    int    `json:"index" yaml:"index" cbor:"2,keyasint"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty" cbor:"3,keyasint,omitempty"`
	Reason   string `json:"reason" yaml:"reason" cbor:"4,keyasint"`
}

// Raw is the unprocessed output of one source fetch.
type Raw struct {
	Devices         []json.RawMessage
	VirtualMachines []json.RawMessage
	Platforms       []json.RawMessage
}

// Len returns the number of host records, devices and virtual machines.
func (r *Raw) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Devices) + len(r.VirtualMachines)
}

// Attribute returns a named attribute, or "" when the host has none.
func (h *Host) Attribute(key string) string {
	return h.Attributes[key]
}

// HasTag reports whether the host carries tag.
func (h *Host) HasTag(tag string) bool {
	_, found := slices.BinarySearch(h.Tags, tag)
	return found
}

// SortHosts orders hosts by name.
func SortHosts(hosts []Host) {
	slices.SortFunc(hosts, func(a, b Host) int {
		return cmp.Compare(a.Name, b.Name)
	})
}
