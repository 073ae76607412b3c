package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Resources fetched from the source, relative to the API root.
const (
	ResourceDevices         = "dcim/devices"
	ResourceVirtualMachines = "virtualization/virtual-machines"
	ResourcePlatforms       = "dcim/platforms"
)

// ref is a nested source object reduced to its identifying key. The source
// returns either a bare string or an object carrying slug, value or name.
type ref struct {
	ID    int    `json:"id"`
	Slug  string `json:"slug"`
	Value string `json:"value"`
	Name  string `json:"name"`
}

func (r *ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = ref{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ref{Slug: s}
		return nil
	}
	type plain ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ref(p)
	return nil
}

// key returns the most stable identifier available.
func (r ref) key() string {
	for _, s := range []string{r.Slug, r.Value, r.Name} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

type deviceType struct {
	Manufacturer ref `json:"manufacturer"`
}

type address struct {
	Address string `json:"address"`
}

// host strips the prefix length from a CIDR address.
func (a *address) host() string {
	if a == nil || a.Address == "" {
		return ""
	}
	if p, err := netip.ParsePrefix(a.Address); err == nil {
		return p.Addr().String()
	}
	if addr, err := netip.ParseAddr(a.Address); err == nil {
		return addr.String()
	}
	h, _, _ := strings.Cut(a.Address, "/")
	return h
}

// record is the subset of a device or virtual machine the inventory uses.
type record struct {
	ID           int            `json:"id"`
	Name         string         `json:"name"`
	Platform     ref            `json:"platform"`
	DeviceType   *deviceType    `json:"device_type"`
	Manufacturer ref            `json:"manufacturer"`
	Site         ref            `json:"site"`
	Role         ref            `json:"role"`
	DeviceRole   ref            `json:"device_role"`
	Status       ref            `json:"status"`
	PrimaryIP    *address       `json:"primary_ip"`
	PrimaryIP4   *address       `json:"primary_ip4"`
	PrimaryIP6   *address       `json:"primary_ip6"`
	Tags         []ref          `json:"tags"`
	CustomFields map[string]any `json:"custom_fields"`
}

// manufacturer prefers device_type.manufacturer and falls back to a flat
// manufacturer field as exported by simple sources and fixtures.
func (r *record) manufacturer() string {
	if r.DeviceType != nil {
		if k := r.DeviceType.Manufacturer.key(); k != "" {
			return k
		}
	}
	return r.Manufacturer.key()
}

func (r *record) role() string {
	if k := r.Role.key(); k != "" {
		return k
	}
	return r.DeviceRole.key()
}

func (r *record) address() string {
	for _, a := range []*address{r.PrimaryIP, r.PrimaryIP4, r.PrimaryIP6} {
		if h := a.host(); h != "" {
			return h
		}
	}
	return ""
}

// platformInfo is the metadata joined onto hosts by platform slug.
type platformInfo struct {
	manufacturer string
	attrs        map[string]string
}

// platformSkipFields are platform keys that identify or describe the record
// itself rather than carry connection metadata.
var platformSkipFields = map[string]struct{}{
	"id": {}, "url": {}, "display": {}, "name": {}, "slug": {}, "created": {},
	"last_updated": {}, "device_count": {}, "virtualmachine_count": {},
	"manufacturer": {}, "tags": {}, "custom_fields": {}, "config_template": {},
}

func parsePlatform(data json.RawMessage) (string, platformInfo, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", platformInfo{}, err
	}

	var id ref
	if err := json.Unmarshal(data, &id); err != nil {
		return "", platformInfo{}, err
	}
	slug := id.key()
	if slug == "" {
		return "", platformInfo{}, fmt.Errorf("platform has neither slug nor name")
	}

	info := platformInfo{attrs: make(map[string]string)}
	if raw, ok := fields["manufacturer"]; ok {
		var m ref
		if err := json.Unmarshal(raw, &m); err == nil {
			info.manufacturer = m.key()
		}
	}
	for k, raw := range fields {
		if _, skip := platformSkipFields[k]; skip {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		if s, ok := scalarString(v); ok && s != "" {
			info.attrs["platform_"+k] = s
		}
	}
	return slug, info, nil
}

// scalarString renders scalar JSON values and reference-like objects.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case map[string]any:
		for _, k := range []string{"slug", "value", "name"} {
			if s, ok := t[k].(string); ok && s != "" {
				return s, true
			}
		}
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := scalarString(item); ok && s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ","), true
		}
	}
	return "", false
}
