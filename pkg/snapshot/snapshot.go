package snapshot

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/netops-tools/invsync/pkg/codec"
	"github.com/netops-tools/invsync/pkg/grouping"
	"github.com/netops-tools/invsync/pkg/inventory"
)

// Snapshot is one fully built, internally consistent inventory. Values
// reachable from a published Snapshot must not be modified.
type Snapshot struct {
	Hosts    []inventory.Host             `cbor:"1,keyasint"`
	Groups   []inventory.Group            `cbor:"2,keyasint"`
	Composed []inventory.ComposedVariable `cbor:"3,keyasint,omitempty"`

	// Version increases by one on every publish into a Cache.
	Version uint64 `cbor:"4,keyasint"`
	// Digest covers Hosts, Groups and Composed only.
	Digest    codec.Digest `cbor:"5,keyasint"`
	CreatedAt time.Time    `cbor:"6,keyasint"`
	// Warnings lists source records skipped while building.
	Warnings []inventory.SkipReason `cbor:"7,keyasint,omitempty"`
	// Restored is set when the snapshot was loaded from the state file.
	Restored bool `cbor:"-"`
}

type content struct {
	Hosts    []inventory.Host             `cbor:"1,keyasint"`
	Groups   []inventory.Group            `cbor:"2,keyasint"`
	Composed []inventory.ComposedVariable `cbor:"3,keyasint,omitempty"`
}

// New assembles a snapshot from normalized hosts and an evaluated rule set
// and computes its digest. Hosts must already be sorted by name.
func New(hosts []inventory.Host, res grouping.Result, warnings []inventory.SkipReason, at time.Time) (*Snapshot, error) {
	s := &Snapshot{
		Hosts:     hosts,
		Groups:    res.Groups,
		Composed:  res.Composed,
		CreatedAt: at.UTC(),
		Warnings:  warnings,
	}
	d, err := s.contentDigest()
	if err != nil {
		return nil, err
	}
	s.Digest = d
	return s, nil
}

// Build runs the grouping engine over hosts and returns the snapshot.
func Build(hosts []inventory.Host, warnings []inventory.SkipReason, engine *grouping.Engine, at time.Time) (*Snapshot, error) {
	return New(hosts, engine.Evaluate(hosts), warnings, at)
}

func (s *Snapshot) contentDigest() (codec.Digest, error) {
	d, err := codec.Sum(content{
		Hosts:    s.Hosts,
		Groups:   s.Groups,
		Composed: s.Composed,
	})
	if err != nil {
		return codec.Digest{}, fmt.Errorf("failed to digest snapshot: %w", err)
	}
	return d, nil
}

// SameContent reports whether s and o hold equal hosts, groups and
// composed variables.
func (s *Snapshot) SameContent(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Digest == o.Digest
}

// Host returns the named host.
func (s *Snapshot) Host(name string) (*inventory.Host, bool) {
	i, ok := slices.BinarySearchFunc(s.Hosts, name, func(h inventory.Host, n string) int {
		return cmp.Compare(h.Name, n)
	})
	if !ok {
		return nil, false
	}
	return &s.Hosts[i], true
}

// Group returns the named group.
func (s *Snapshot) Group(name string) (*inventory.Group, bool) {
	i, ok := slices.BinarySearchFunc(s.Groups, name, func(g inventory.Group, n string) int {
		return cmp.Compare(g.Name, n)
	})
	if !ok {
		return nil, false
	}
	return &s.Groups[i], true
}

// HostVars returns the composed variables of one host.
func (s *Snapshot) HostVars(name string) map[string]string {
	i, _ := slices.BinarySearchFunc(s.Composed, name, func(c inventory.ComposedVariable, n string) int {
		return cmp.Compare(c.Host, n)
	})
	vars := make(map[string]string)
	for ; i < len(s.Composed) && s.Composed[i].Host == name; i++ {
		vars[s.Composed[i].Name] = s.Composed[i].Value
	}
	return vars
}

// Age returns how long ago the snapshot was built.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// Validate checks internal consistency. Published snapshots always pass.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}

	hosts := make(map[string]struct{}, len(s.Hosts))
	for i, h := range s.Hosts {
		if h.Name == "" {
			return fmt.Errorf("host %d has no name", i)
		}
		if _, dup := hosts[h.Name]; dup {
			return fmt.Errorf("duplicate host %q", h.Name)
		}
		if i > 0 && s.Hosts[i-1].Name > h.Name {
			return fmt.Errorf("hosts are not sorted at %q", h.Name)
		}
		hosts[h.Name] = struct{}{}
	}

	groups := make(map[string]struct{}, len(s.Groups))
	for i, g := range s.Groups {
		if _, dup := groups[g.Name]; dup {
			return fmt.Errorf("duplicate group %q", g.Name)
		}
		if i > 0 && s.Groups[i-1].Name > g.Name {
			return fmt.Errorf("groups are not sorted at %q", g.Name)
		}
		groups[g.Name] = struct{}{}
	}

	member := make(map[string]struct{}, len(s.Hosts))
	for _, g := range s.Groups {
		for _, h := range g.Hosts {
			if _, ok := hosts[h]; !ok {
				return fmt.Errorf("group %q references unknown host %q", g.Name, h)
			}
			member[h] = struct{}{}
		}
		for _, c := range g.Children {
			if _, ok := groups[c]; !ok {
				return fmt.Errorf("group %q references unknown child group %q", g.Name, c)
			}
		}
	}
	for name := range hosts {
		if _, ok := member[name]; !ok {
			return fmt.Errorf("host %q belongs to no group", name)
		}
	}

	for i, c := range s.Composed {
		if _, ok := hosts[c.Host]; !ok {
			return fmt.Errorf("composed variable %q references unknown host %q", c.Name, c.Host)
		}
		if i > 0 && s.Composed[i-1].Host > c.Host {
			return fmt.Errorf("composed variables are not sorted at %q", c.Host)
		}
	}
	return nil
}
