package grouping

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netops-tools/invsync/pkg/inventory"
)

func scenarioHosts() []inventory.Host {
	return []inventory.Host{
		{Name: "R1", Platform: "ios", Manufacturer: "Cisco", Site: "fra1", Address: "10.0.0.1", Tags: []string{"core", "edge"}},
		{Name: "SW1", Platform: "ios", Manufacturer: "Cisco", Site: "fra1", Address: "10.0.0.2", Tags: []string{"core"}},
		{Name: "VYOS1", Platform: "vyos", Manufacturer: "VyOS", Address: "10.0.0.3"},
	}
}

func groupMap(groups []inventory.Group) map[string]inventory.Group {
	m := make(map[string]inventory.Group, len(groups))
	for _, g := range groups {
		m[g.Name] = g
	}
	return m
}

func mustGroupBy(t *testing.T, attr string) GroupBy {
	t.Helper()
	r, err := NewGroupBy(attr)
	require.NoError(t, err)
	return r
}

func TestGroupByManufacturerScenario(t *testing.T) {
	groups := Group(scenarioHosts(), []Rule{mustGroupBy(t, "manufacturer")})
	m := groupMap(groups)

	assert.Equal(t, []string{"R1", "SW1"}, m["manufacturers_cisco"].Hosts)
	assert.Equal(t, []string{"VYOS1"}, m["manufacturers_vyos"].Hosts)
	assert.Empty(t, m[GroupUngrouped].Hosts)
	assert.NotNil(t, m[GroupUngrouped].Hosts)
	assert.Equal(t, []string{"manufacturers_cisco", "manufacturers_vyos", GroupUngrouped}, m[GroupAll].Children)
	assert.Len(t, groups, 4)
}

func TestGroupMissingAttributeGoesToUngrouped(t *testing.T) {
	groups := Group(scenarioHosts(), []Rule{mustGroupBy(t, "sites")})
	m := groupMap(groups)

	assert.Equal(t, []string{"R1", "SW1"}, m["sites_fra1"].Hosts)
	assert.Equal(t, []string{"VYOS1"}, m[GroupUngrouped].Hosts)
}

func TestGroupHostInAnyGroupIsNotUngrouped(t *testing.T) {
	groups := Group(scenarioHosts(), []Rule{mustGroupBy(t, "site"), mustGroupBy(t, "platform")})
	m := groupMap(groups)

	assert.Equal(t, []string{"VYOS1"}, m["platforms_vyos"].Hosts)
	assert.Empty(t, m[GroupUngrouped].Hosts)
}

func TestGroupByTagsIsMultiValued(t *testing.T) {
	groups := Group(scenarioHosts(), []Rule{mustGroupBy(t, "tag")})
	m := groupMap(groups)

	assert.Equal(t, []string{"R1", "SW1"}, m["tags_core"].Hosts)
	assert.Equal(t, []string{"R1"}, m["tags_edge"].Hosts)
	assert.Equal(t, []string{"VYOS1"}, m[GroupUngrouped].Hosts)
}

func TestGroupWithoutRules(t *testing.T) {
	groups := Group(scenarioHosts(), nil)
	require.Len(t, groups, 2)
	assert.Equal(t, GroupAll, groups[0].Name)
	assert.Equal(t, []string{GroupUngrouped}, groups[0].Children)
	assert.Equal(t, []string{"R1", "SW1", "VYOS1"}, groups[1].Hosts)
}

func TestGroupIsDeterministic(t *testing.T) {
	rules := []Rule{mustGroupBy(t, "manufacturer"), mustGroupBy(t, "tags")}
	first := Group(scenarioHosts(), rules)
	for range 20 {
		assert.Equal(t, first, Group(scenarioHosts(), rules))
	}
}

func TestSanitizeGroupName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"manufacturers_Cisco Systems", "manufacturers_cisco_systems"},
		{"sites_fra-1", "sites_fra_1"},
		{"device_roles_Edge.Router", "device_roles_edge_router"},
		{"tags_Zürich", "tags_z_rich"},
		{"  status_active ", "status_active"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeGroupName(tt.in))
		})
	}
}

func TestParseAttribute(t *testing.T) {
	tests := []struct {
		in      string
		want    Attribute
		wantErr bool
	}{
		{"manufacturer", AttrManufacturer, false},
		{"Manufacturers", AttrManufacturer, false},
		{"device_roles", AttrRole, false},
		{"role", AttrRole, false},
		{"tag", AttrTags, false},
		{"cf_env", Attribute("cf_env"), false},
		{"platform_napalm_driver", Attribute("platform_napalm_driver"), false},
		{"cf_", "", true},
		{"rack", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAttribute(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewGroupByRejectsUniqueAttributes(t *testing.T) {
	_, err := NewGroupBy("name")
	assert.Error(t, err)
	_, err = NewGroupBy("address")
	assert.Error(t, err)
}

func TestGroupByCustomField(t *testing.T) {
	hosts := scenarioHosts()
	hosts[0].Attributes = map[string]string{"cf_env": "Prod"}
	m := groupMap(Group(hosts, []Rule{mustGroupBy(t, "cf_env")}))
	assert.Equal(t, []string{"R1"}, m["cf_env_prod"].Hosts)
	assert.Equal(t, []string{"SW1", "VYOS1"}, m[GroupUngrouped].Hosts)
}

func TestComposeVars(t *testing.T) {
	def := "unknown"
	networkOS, err := NewCompose("ansible_network_os", "platform", map[string]string{
		"ios":  "cisco.ios.ios",
		"vyos": "vyos.vyos.vyos",
	}, nil)
	require.NoError(t, err)
	siteCode, err := NewCompose("site_code", "site", nil, &def)
	require.NoError(t, err)
	hostIP, err := NewCompose("mgmt_ip", "address", nil, nil)
	require.NoError(t, err)
	rules := []Rule{networkOS, siteCode, hostIP}

	hosts := scenarioHosts()
	assert.Equal(t, map[string]string{
		"ansible_network_os": "cisco.ios.ios",
		"site_code":          "fra1",
		"mgmt_ip":            "10.0.0.1",
	}, ComposeVars(&hosts[0], rules))
	assert.Equal(t, map[string]string{
		"ansible_network_os": "vyos.vyos.vyos",
		"site_code":          "unknown",
		"mgmt_ip":            "10.0.0.3",
	}, ComposeVars(&hosts[2], rules))

	eos := inventory.Host{Name: "A1", Platform: "eos"}
	assert.Equal(t, map[string]string{"site_code": "unknown"}, ComposeVars(&eos, rules))
}

func TestNewComposeValidation(t *testing.T) {
	_, err := NewCompose("Bad Name", "platform", nil, nil)
	assert.Error(t, err)
	_, err = NewCompose("ok", "nope", nil, nil)
	assert.Error(t, err)
}

func TestEngineEvaluate(t *testing.T) {
	networkOS, err := NewCompose("ansible_network_os", "platform", map[string]string{"ios": "cisco.ios.ios"}, nil)
	require.NoError(t, err)

	e := NewEngine(
		[]Rule{mustGroupBy(t, "manufacturer"), networkOS},
		map[string]map[string]any{
			"manufacturers_cisco":   {"ansible_connection": "network_cli"},
			"manufacturers_juniper": {"ansible_connection": "netconf"},
		},
	)

	res := e.Evaluate(scenarioHosts())
	m := groupMap(res.Groups)
	assert.Equal(t, map[string]any{"ansible_connection": "network_cli"}, m["manufacturers_cisco"].Vars)
	assert.Nil(t, m["manufacturers_vyos"].Vars)
	assert.Equal(t, []string{"manufacturers_juniper"}, res.UnknownGroupVars)
	assert.Equal(t, []inventory.ComposedVariable{
		{Host: "R1", Name: "ansible_network_os", Value: "cisco.ios.ios"},
		{Host: "SW1", Name: "ansible_network_os", Value: "cisco.ios.ios"},
	}, res.Composed)
}

func TestEngineConcurrentEvaluate(t *testing.T) {
	e := NewEngine([]Rule{mustGroupBy(t, "manufacturer"), mustGroupBy(t, "tags")}, nil)
	want := e.Evaluate(scenarioHosts())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, e.Evaluate(scenarioHosts()))
		}()
	}
	wg.Wait()
}

func TestRuleKind(t *testing.T) {
	assert.Equal(t, KindGroupBy, GroupBy{}.Kind())
	assert.Equal(t, KindCompose, Compose{}.Kind())
	assert.Equal(t, "group_by", KindGroupBy.String())
	assert.Equal(t, "compose", KindCompose.String())
}
