package export

import (
	"maps"
	"reflect"
	"slices"
)

// Diff lists what changed between two native documents.
type Diff struct {
	AddedHosts   []string              `json:"added_hosts,omitempty" yaml:"added_hosts,omitempty"`
	RemovedHosts []string              `json:"removed_hosts,omitempty" yaml:"removed_hosts,omitempty"`
	ChangedHosts []string              `json:"changed_hosts,omitempty" yaml:"changed_hosts,omitempty"`
	Groups       map[string]GroupDelta `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// GroupDelta is the membership change of one group. A group that appeared
// lists all its hosts as added; one that vanished lists them as removed.
type GroupDelta struct {
	Added   []string `json:"added,omitempty" yaml:"added,omitempty"`
	Removed []string `json:"removed,omitempty" yaml:"removed,omitempty"`
	Vars    bool     `json:"vars_changed,omitempty" yaml:"vars_changed,omitempty"`
}

// Empty reports whether the documents were equivalent.
func (d *Diff) Empty() bool {
	return len(d.AddedHosts) == 0 && len(d.RemovedHosts) == 0 &&
		len(d.ChangedHosts) == 0 && len(d.Groups) == 0
}

// Compare returns the changes from old to cur.
func Compare(old, cur *Document) *Diff {
	d := &Diff{}

	for _, name := range sortedKeys(cur.Hosts) {
		prev, ok := old.Hosts[name]
		switch {
		case !ok:
			d.AddedHosts = append(d.AddedHosts, name)
		case !reflect.DeepEqual(prev.Attrs, cur.Hosts[name].Attrs):
			d.ChangedHosts = append(d.ChangedHosts, name)
		}
	}
	for _, name := range sortedKeys(old.Hosts) {
		if _, ok := cur.Hosts[name]; !ok {
			d.RemovedHosts = append(d.RemovedHosts, name)
		}
	}

	names := slices.Concat(sortedKeys(old.Groups), sortedKeys(cur.Groups))
	slices.Sort(names)
	for _, name := range slices.Compact(names) {
		before, after := old.Groups[name], cur.Groups[name]
		delta := GroupDelta{
			Added:   missing(after.Hosts, before.Hosts),
			Removed: missing(before.Hosts, after.Hosts),
			Vars:    len(before.Vars)+len(after.Vars) > 0 && !reflect.DeepEqual(before.Vars, after.Vars),
		}
		if len(delta.Added) == 0 && len(delta.Removed) == 0 && !delta.Vars {
			continue
		}
		if d.Groups == nil {
			d.Groups = make(map[string]GroupDelta)
		}
		d.Groups[name] = delta
	}
	return d
}

// missing returns the members of a absent from b, sorted.
func missing(a, b []string) []string {
	var out []string
	for _, h := range a {
		if !slices.Contains(b, h) {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
