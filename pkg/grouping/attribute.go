package grouping

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/netops-tools/invsync/pkg/inventory"
)

// Attribute names a host field rules can group by or compose from.
type Attribute string

const (
	AttrName         Attribute = "name"
	AttrKind         Attribute = "kind"
	AttrPlatform     Attribute = "platform"
	AttrManufacturer Attribute = "manufacturer"
	AttrSite         Attribute = "site"
	AttrRole         Attribute = "role"
	AttrStatus       Attribute = "status"
	AttrAddress      Attribute = "address"
	AttrTags         Attribute = "tags"
)

// Reserved group names.
const (
	GroupAll       = "all"
	GroupUngrouped = "ungrouped"
)

// Prefixes for free-form host attributes.
const (
	customFieldPrefix = "cf_"
	platformPrefix    = "platform_"
)

var aliases = map[string]Attribute{
	"name":          AttrName,
	"kind":          AttrKind,
	"platform":      AttrPlatform,
	"platforms":     AttrPlatform,
	"manufacturer":  AttrManufacturer,
	"manufacturers": AttrManufacturer,
	"site":          AttrSite,
	"sites":         AttrSite,
	"role":          AttrRole,
	"roles":         AttrRole,
	"device_role":   AttrRole,
	"device_roles":  AttrRole,
	"status":        AttrStatus,
	"address":       AttrAddress,
	"tag":           AttrTags,
	"tags":          AttrTags,
}

var prefixes = map[Attribute]string{
	AttrManufacturer: "manufacturers",
	AttrSite:         "sites",
	AttrRole:         "device_roles",
	AttrPlatform:     "platforms",
	AttrTags:         "tags",
	AttrStatus:       "status",
}

var (
	attributeKey = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	unsafeChars  = regexp.MustCompile(`[^a-z0-9_]`)
)

// ParseAttribute resolves singular and plural spellings to an Attribute.
// Free-form attributes must carry the cf_ or platform_ prefix.
func ParseAttribute(s string) (Attribute, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if a, ok := aliases[key]; ok {
		return a, nil
	}
	if attributeKey.MatchString(key) &&
		(strings.HasPrefix(key, customFieldPrefix) || strings.HasPrefix(key, platformPrefix)) &&
		key != customFieldPrefix && key != platformPrefix {
		return Attribute(key), nil
	}
	return "", fmt.Errorf("unknown attribute %q", s)
}

// Prefix returns the group name prefix used for a.
func (a Attribute) Prefix() string {
	if p, ok := prefixes[a]; ok {
		return p
	}
	return string(a)
}

// Values returns the host's values for a. Missing values yield an empty slice;
// tags yield one value per tag.
func (a Attribute) Values(h *inventory.Host) []string {
	var v string
	switch a {
	case AttrTags:
		return h.Tags
	case AttrName:
		v = h.Name
	case AttrKind:
		v = string(h.Kind)
	case AttrPlatform:
		v = h.Platform
	case AttrManufacturer:
		v = h.Manufacturer
	case AttrSite:
		v = h.Site
	case AttrRole:
		v = h.Role
	case AttrStatus:
		v = h.Status
	case AttrAddress:
		v = h.Address
	default:
		v = h.Attribute(string(a))
	}
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return []string{v}
}

// Value returns the single value of a, joining multi-valued attributes with
// commas.
func (a Attribute) Value(h *inventory.Host) (string, bool) {
	vals := a.Values(h)
	if len(vals) == 0 {
		return "", false
	}
	return strings.Join(vals, ","), true
}

// GroupName builds the sanitized group name for a value of a.
func GroupName(a Attribute, value string) string {
	return SanitizeGroupName(a.Prefix() + "_" + value)
}

// SanitizeGroupName lower-cases name and replaces every character outside
// [a-z0-9_] with an underscore.
func SanitizeGroupName(name string) string {
	// A Caser is stateful and cannot be shared between goroutines.
	lower := cases.Lower(language.Und)
	return unsafeChars.ReplaceAllString(lower.String(strings.TrimSpace(name)), "_")
}
