package inventory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netops-tools/invsync/pkg/errors"
)

func raws(t *testing.T, docs ...string) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		require.True(t, json.Valid([]byte(d)), "invalid fixture: %s", d)
		out = append(out, json.RawMessage(d))
	}
	return out
}

func TestNormalizeKeepsOnlyRecordsWithNameAndPlatform(t *testing.T) {
	raw := &Raw{Devices: raws(t,
		`{"id":1,"name":"R1","platform":{"slug":"ios"},"device_type":{"manufacturer":{"slug":"cisco"}}}`,
		`{"id":2,"name":"","platform":{"slug":"ios"}}`,
		`{"id":3,"name":"SW9"}`,
		`{"id":4,"name":"SW8","platform":null}`,
		`{"id":5,"platform":{"slug":"eos"}}`,
		`{"id":6,"name":"VYOS1","platform":"vyos"}`,
	)}

	hosts, skipped := Normalize(raw)

	require.Len(t, hosts, 2)
	assert.Equal(t, "R1", hosts[0].Name)
	assert.Equal(t, "VYOS1", hosts[1].Name)

	require.Len(t, skipped, 4)
	indexes := make([]int, 0, len(skipped))
	for _, s := range skipped {
		assert.Equal(t, ResourceDevices, s.Resource)
		assert.NotEmpty(t, s.Reason)
		indexes = append(indexes, s.Index)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, indexes)
	assert.Equal(t, "SW9", skipped[1].Name)
	assert.Contains(t, skipped[1].Reason, "platform")
}

func TestNormalizeReducesNestedObjects(t *testing.T) {
	raw := &Raw{
		Devices: raws(t, `{
			"id": 10,
			"name": "edge-1",
			"platform": {"id": 3, "name": "Cisco IOS", "slug": "ios"},
			"device_type": {"model": "ISR4331", "manufacturer": {"name": "Cisco", "slug": "cisco"}},
			"site": {"slug": "fra1"},
			"device_role": {"slug": "edge-router"},
			"status": {"value": "active", "label": "Active"},
			"primary_ip": {"address": "10.0.0.1/24"},
			"tags": [{"slug": "core"}, {"slug": "bgp"}, "bgp"],
			"custom_fields": {"rack_unit": 12, "env": "prod", "owner": null, "monitored": true}
		}`),
		Platforms: raws(t, `{"id": 3, "slug": "ios", "name": "Cisco IOS", "napalm_driver": "ios", "manufacturer": {"slug": "cisco"}, "device_count": 4}`),
	}

	hosts, skipped := Normalize(raw)
	require.Empty(t, skipped)
	require.Len(t, hosts, 1)

	h := hosts[0]
	assert.Equal(t, 10, h.ID)
	assert.Equal(t, KindDevice, h.Kind)
	assert.Equal(t, "ios", h.Platform)
	assert.Equal(t, "cisco", h.Manufacturer)
	assert.Equal(t, "fra1", h.Site)
	assert.Equal(t, "edge-router", h.Role)
	assert.Equal(t, "active", h.Status)
	assert.Equal(t, "10.0.0.1", h.Address)
	assert.Equal(t, []string{"bgp", "core"}, h.Tags)
	assert.True(t, h.HasTag("core"))
	assert.Equal(t, map[string]string{
		"cf_rack_unit":           "12",
		"cf_env":                 "prod",
		"cf_monitored":           "true",
		"platform_napalm_driver": "ios",
	}, h.Attributes)
}

func TestNormalizeVirtualMachinesInheritPlatformManufacturer(t *testing.T) {
	raw := &Raw{
		VirtualMachines: raws(t, `{"id":7,"name":"vrouter","platform":{"slug":"vyos"},"role":{"slug":"router"},"primary_ip6":{"address":"2001:db8::1/64"}}`),
		Platforms:       raws(t, `{"slug":"vyos","manufacturer":{"slug":"vyos"}}`),
	}

	hosts, skipped := Normalize(raw)
	require.Empty(t, skipped)
	require.Len(t, hosts, 1)
	assert.Equal(t, KindVirtualMachine, hosts[0].Kind)
	assert.Equal(t, "vyos", hosts[0].Manufacturer)
	assert.Equal(t, "router", hosts[0].Role)
	assert.Equal(t, "2001:db8::1", hosts[0].Address)
	assert.Nil(t, hosts[0].Attributes)
}

func TestNormalizeDuplicateNamesFirstWins(t *testing.T) {
	raw := &Raw{
		Devices:         raws(t, `{"id":1,"name":"core","platform":"ios"}`),
		VirtualMachines: raws(t, `{"id":2,"name":"core","platform":"vyos"}`),
	}

	hosts, skipped := Normalize(raw)
	require.Len(t, hosts, 1)
	assert.Equal(t, "ios", hosts[0].Platform)
	require.Len(t, skipped, 1)
	assert.Equal(t, ResourceVirtualMachines, skipped[0].Resource)
	assert.Equal(t, "duplicate host name", skipped[0].Reason)
}

func TestNormalizeSortsByName(t *testing.T) {
	raw := &Raw{Devices: raws(t,
		`{"name":"c","platform":"ios"}`,
		`{"name":"a","platform":"ios"}`,
		`{"name":"b","platform":"ios"}`,
	)}
	hosts, _ := Normalize(raw)
	names := []string{hosts[0].Name, hosts[1].Name, hosts[2].Name}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestNormalizeNil(t *testing.T) {
	hosts, skipped := Normalize(nil)
	assert.Empty(t, hosts)
	assert.Empty(t, skipped)
}

func TestSkipReasonErr(t *testing.T) {
	err := SkipReason{Resource: ResourceDevices, Index: 3, Name: "x", Reason: "missing platform"}.Err()
	assert.True(t, errors.Is(err, errors.ErrCodeSchema))
	assert.Equal(t, 3, err.Context["index"])
}

func TestNormalizeFlatManufacturer(t *testing.T) {
	raw := &Raw{Devices: raws(t,
		`{"name":"R1","manufacturer":"cisco","platform":"ios"}`,
		`{"name":"SW1","manufacturer":"cisco","platform":"ios"}`,
		`{"name":"VYOS1","manufacturer":"vyos","platform":"vyos"}`,
	)}

	hosts, skipped := Normalize(raw)
	assert.Empty(t, skipped)
	require.Len(t, hosts, 3)
	for _, h := range hosts {
		assert.NotEmpty(t, h.Manufacturer, h.Name)
	}
	assert.Equal(t, "vyos", hosts[2].Manufacturer)
}
