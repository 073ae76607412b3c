package grouping

import (
	"cmp"
	"maps"
	"slices"

	"github.com/netops-tools/invsync/pkg/inventory"
)

// Result is the output of evaluating a rule set against a host list.
type Result struct {
	Groups   []inventory.Group
	Composed []inventory.ComposedVariable

	// UnknownGroupVars lists group_vars entries naming no produced group.
	UnknownGroupVars []string
}

// Engine evaluates a fixed rule set. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	rules     []Rule
	groupVars map[string]map[string]any
}

// NewEngine returns an Engine for rules. groupVars attaches static variables
// to groups by name.
func NewEngine(rules []Rule, groupVars map[string]map[string]any) *Engine {
	return &Engine{
		rules:     slices.Clone(rules),
		groupVars: groupVars,
	}
}

// Rules returns a copy of the engine's rules.
func (e *Engine) Rules() []Rule {
	return slices.Clone(e.rules)
}

// Evaluate groups hosts and composes per-host variables.
func (e *Engine) Evaluate(hosts []inventory.Host) Result {
	groups := Group(hosts, e.rules)

	var unknown []string
	byName := make(map[string]int, len(groups))
	for i := range groups {
		byName[groups[i].Name] = i
	}
	for name, vars := range e.groupVars {
		i, ok := byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if len(vars) > 0 {
			groups[i].Vars = maps.Clone(vars)
		}
	}
	slices.Sort(unknown)

	var composed []inventory.ComposedVariable
	for i := range hosts {
		vars := ComposeVars(&hosts[i], e.rules)
		for _, name := range slices.Sorted(maps.Keys(vars)) {
			composed = append(composed, inventory.ComposedVariable{
				Host:  hosts[i].Name,
				Name:  name,
				Value: vars[name],
			})
		}
	}
	slices.SortFunc(composed, func(a, b inventory.ComposedVariable) int {
		if c := cmp.Compare(a.Host, b.Host); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	return Result{
		Groups:           groups,
		Composed:         composed,
		UnknownGroupVars: unknown,
	}
}

// Group applies every GroupBy rule in order and returns groups sorted by name,
// including the reserved all and ungrouped groups. Hosts that fall into no
// attribute group are members of ungrouped.
func Group(hosts []inventory.Host, rules []Rule) []inventory.Group {
	members := make(map[string]map[string]struct{})
	grouped := make(map[string]struct{}, len(hosts))

	for _, r := range rules {
		gb, ok := r.(GroupBy)
		if !ok {
			continue
		}
		for i := range hosts {
			h := &hosts[i]
			for _, v := range gb.Attribute.Values(h) {
				name := GroupName(gb.Attribute, v)
				set, ok := members[name]
				if !ok {
					set = make(map[string]struct{})
					members[name] = set
				}
				set[h.Name] = struct{}{}
				grouped[h.Name] = struct{}{}
			}
		}
	}

	ungrouped := make(map[string]struct{})
	for i := range hosts {
		if _, ok := grouped[hosts[i].Name]; !ok {
			ungrouped[hosts[i].Name] = struct{}{}
		}
	}
	members[GroupUngrouped] = ungrouped

	groups := make([]inventory.Group, 0, len(members)+1)
	children := make([]string, 0, len(members))
	for name, set := range members {
		groups = append(groups, inventory.Group{
			Name:  name,
			Hosts: sortedKeys(set),
		})
		children = append(children, name)
	}
	slices.Sort(children)
	groups = append(groups, inventory.Group{
		Name:     GroupAll,
		Hosts:    []string{},
		Children: children,
	})

	slices.SortFunc(groups, func(a, b inventory.Group) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return groups
}

// ComposeVars evaluates every Compose rule in order for h. Later rules with
// the same name replace earlier values.
func ComposeVars(h *inventory.Host, rules []Rule) map[string]string {
	out := make(map[string]string)
	for _, r := range rules {
		c, ok := r.(Compose)
		if !ok {
			continue
		}
		v, found := c.Source.Value(h)
		if v, ok := c.evaluate(v, found); ok {
			out[c.Name] = v
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
