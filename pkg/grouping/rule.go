package grouping

import (
	"fmt"
	"strings"
)

// RuleKind identifies a rule variant.
type RuleKind int

const (
	KindGroupBy RuleKind = iota + 1
	KindCompose
)

func (k RuleKind) String() string {
	switch k {
	case KindGroupBy:
		return "group_by"
	case KindCompose:
		return "compose"
	default:
		return fmt.Sprintf("RuleKind(%d)", int(k))
	}
}

// Rule is one grouping or composition rule. The set of implementations is
// closed: GroupBy and Compose.
type Rule interface {
	Kind() RuleKind
	rule()
}

// GroupBy creates one group per distinct value of Attribute.
type GroupBy struct {
	Attribute Attribute
}

// Kind implements Rule.
func (GroupBy) Kind() RuleKind { return KindGroupBy }
func (GroupBy) rule()          {}

// Compose sets host variable Name from Source. When Map is non-empty the
// source value is translated through it; values missing from Map, and hosts
// missing Source, fall back to Default. Without a default the variable is
// left unset.
type Compose struct {
	Name    string
	Source  Attribute
	Map     map[string]string
	Default *string
}

// Kind implements Rule.
func (Compose) Kind() RuleKind { return KindCompose }
func (Compose) rule()          {}

// NewGroupBy parses attr into a GroupBy rule.
func NewGroupBy(attr string) (GroupBy, error) {
	a, err := ParseAttribute(attr)
	if err != nil {
		return GroupBy{}, fmt.Errorf("group_by: %w", err)
	}
	if a == AttrName || a == AttrAddress {
		return GroupBy{}, fmt.Errorf("group_by: attribute %q is unique per host", attr)
	}
	return GroupBy{Attribute: a}, nil
}

// NewCompose validates and builds a Compose rule.
func NewCompose(name, source string, mapping map[string]string, def *string) (Compose, error) {
	name = strings.TrimSpace(name)
	if !attributeKey.MatchString(name) {
		return Compose{}, fmt.Errorf("compose: invalid variable name %q", name)
	}
	a, err := ParseAttribute(source)
	if err != nil {
		return Compose{}, fmt.Errorf("compose %s: %w", name, err)
	}
	return Compose{Name: name, Source: a, Map: mapping, Default: def}, nil
}

// evaluate returns the composed value for h.
func (c Compose) evaluate(v string, ok bool) (string, bool) {
	if ok && len(c.Map) > 0 {
		v, ok = c.Map[v]
	}
	if ok {
		return v, true
	}
	if c.Default != nil {
		return *c.Default, true
	}
	return "", false
}
