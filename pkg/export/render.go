package export

import (
	"fmt"
	"slices"
	"strings"

	"github.com/netops-tools/invsync/pkg/grouping"
	"github.com/netops-tools/invsync/pkg/inventory"
	"github.com/netops-tools/invsync/pkg/serializer"
	"github.com/netops-tools/invsync/pkg/snapshot"
)

// Style selects the document layout.
type Style string

const (
	StyleInventory Style = "inventory"
	StyleAnsible   Style = "ansible"
)

// ansibleHostVar carries the host address in Ansible hostvars.
const ansibleHostVar = "ansible_host"

// metaGroup is the reserved key holding hostvars in the Ansible layout.
const metaGroup = "_meta"

// ParseStyle converts a user supplied name to a Style. The empty string
// selects the native inventory document.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StyleInventory, nil
	case StyleInventory, StyleAnsible:
		return st, nil
	default:
		return "", fmt.Errorf("unknown style %q, supported: %s, %s", s, StyleInventory, StyleAnsible)
	}
}

// Document is the native inventory document.
type Document struct {
	Groups map[string]GroupEntry `json:"groups" yaml:"groups"`
	Hosts  map[string]HostEntry  `json:"hosts" yaml:"hosts"`
}

// GroupEntry is one group of the native document.
type GroupEntry struct {
	Hosts    []string       `json:"hosts" yaml:"hosts"`
	Children []string       `json:"children,omitempty" yaml:"children,omitempty"`
	Vars     map[string]any `json:"vars,omitempty" yaml:"vars,omitempty"`
}

// HostEntry is one host of the native document. Attrs holds the host
// fields and composed variables.
type HostEntry struct {
	Attrs map[string]any `json:"attrs" yaml:"attrs"`
}

// Render builds the native document for s.
func Render(s *snapshot.Snapshot) *Document {
	doc := &Document{
		Groups: make(map[string]GroupEntry, len(s.Groups)),
		Hosts:  make(map[string]HostEntry, len(s.Hosts)),
	}
	for _, g := range s.Groups {
		doc.Groups[g.Name] = GroupEntry{
			Hosts:    nonNil(g.Hosts),
			Children: g.Children,
			Vars:     g.Vars,
		}
	}
	for i := range s.Hosts {
		h := &s.Hosts[i]
		attrs := hostAttrs(h)
		for k, v := range s.HostVars(h.Name) {
			attrs[k] = v
		}
		doc.Hosts[h.Name] = HostEntry{Attrs: attrs}
	}
	return doc
}

// AnsibleGroup is one top-level entry of the Ansible layout. Only the
// _meta entry carries HostVars.
type AnsibleGroup struct {
	Hosts    []string                  `json:"hosts,omitempty" yaml:"hosts,omitempty"`
	Children []string                  `json:"children,omitempty" yaml:"children,omitempty"`
	Vars     map[string]any            `json:"vars,omitempty" yaml:"vars,omitempty"`
	HostVars map[string]map[string]any `json:"hostvars,omitempty" yaml:"hostvars,omitempty"`
}

// AnsibleInventory maps group names, plus _meta, to their entries.
type AnsibleInventory map[string]AnsibleGroup

// RenderAnsible builds the Ansible dynamic inventory layout for s.
func RenderAnsible(s *snapshot.Snapshot) AnsibleInventory {
	inv := make(AnsibleInventory, len(s.Groups)+1)
	for _, g := range s.Groups {
		entry := AnsibleGroup{
			Hosts:    g.Hosts,
			Children: g.Children,
			Vars:     g.Vars,
		}
		if g.Name == grouping.GroupAll {
			// Every host reaches all through a child group.
			entry.Hosts = nil
		}
		inv[g.Name] = entry
	}

	hostvars := make(map[string]map[string]any, len(s.Hosts))
	for i := range s.Hosts {
		h := &s.Hosts[i]
		hostvars[h.Name] = ansibleHostVars(s, h)
	}
	// _meta is always present so the engine skips per-host --host calls.
	inv[metaGroup] = AnsibleGroup{HostVars: hostvars}
	return inv
}

// AnsibleHost returns the hostvars of one host, as an inventory script
// prints them for --host.
func AnsibleHost(s *snapshot.Snapshot, name string) (map[string]any, bool) {
	h, ok := s.Host(name)
	if !ok {
		return nil, false
	}
	return ansibleHostVars(s, h), true
}

func ansibleHostVars(s *snapshot.Snapshot, h *inventory.Host) map[string]any {
	vars := hostAttrs(h)
	if h.Address != "" {
		vars[ansibleHostVar] = h.Address
	}
	for k, v := range s.HostVars(h.Name) {
		vars[k] = v
	}
	return vars
}

// RenderStyle renders s in the requested style.
func RenderStyle(s *snapshot.Snapshot, style Style) (any, error) {
	switch style {
	case StyleInventory, "":
		return Render(s), nil
	case StyleAnsible:
		return RenderAnsible(s), nil
	default:
		return nil, fmt.Errorf("unknown style %q", style)
	}
}

// Encode serializes a rendered document. Output is byte-identical for equal
// documents.
func Encode(doc any, format serializer.Format) ([]byte, error) {
	return serializer.Marshal(format, doc)
}

// hostAttrs flattens the host fields into one attribute map. Empty fields
// are left out; source attributes never shadow the named fields.
func hostAttrs(h *inventory.Host) map[string]any {
	attrs := make(map[string]any, len(h.Attributes)+8)
	for k, v := range h.Attributes {
		attrs[k] = v
	}

	set := func(k, v string) {
		if v != "" {
			attrs[k] = v
		}
	}
	set("kind", string(h.Kind))
	set("platform", h.Platform)
	set("manufacturer", h.Manufacturer)
	set("site", h.Site)
	set("role", h.Role)
	set("status", h.Status)
	set("address", h.Address)
	if h.ID != 0 {
		attrs["id"] = h.ID
	}
	if len(h.Tags) > 0 {
		attrs["tags"] = slices.Clone(h.Tags)
	}
	return attrs
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
