package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"filippo.io/age"
	"filippo.io/age/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/netops-tools/invsync/pkg/defaults"
	"github.com/netops-tools/invsync/pkg/errors"
	"github.com/netops-tools/invsync/pkg/grouping"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) Option {
	return WithLookupEnv(func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	})
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleYAML = `
api_endpoint: https://netbox.example.com
token: 0123456789abcdef
group_by: [manufacturers, site]
compose:
  ansible_network_os:
    source: platform
    map:
      ios: cisco.ios.ios
  site_code: site
group_vars:
  manufacturers_cisco:
    ansible_connection: network_cli
refresh_interval: 5m
`

func TestLoadYAMLAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "invsync.yaml", sampleYAML), WithLookupEnv(noEnv))
	require.NoError(t, err)

	assert.Equal(t, "https://netbox.example.com", cfg.APIEndpoint)
	assert.Equal(t, "0123456789abcdef", cfg.Token.Reveal())
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, defaults.SourceRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, defaults.SourceMaxRetries, cfg.Retries())
	assert.Equal(t, defaults.SourcePageSize, cfg.PageSize)
	assert.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	assert.Equal(t, ComposeSpec{Source: "site"}, cfg.Compose["site_code"])
	assert.Equal(t, "cisco.ios.ios", cfg.Compose["ansible_network_os"].Map["ios"])
}

func TestLoadJSONC(t *testing.T) {
	path := writeFile(t, "invsync.jsonc", `{
		// source
		"api_endpoint": "http://netbox:8000",
		"token": "abc",
		"max_retries": 0, /* explicit zero is kept */
		"request_timeout": "10s",
		"group_by": ["platform",],
	}`)
	cfg, err := Load(path, WithLookupEnv(noEnv))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Retries())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"platform"}, cfg.GroupBy)
}

func TestLoadRejectsUnknownKeysAndExtensions(t *testing.T) {
	_, err := Load(writeFile(t, "c.yaml", "api_endpoint: http://x\ntoken: t\nbogus: 1\n"), WithLookupEnv(noEnv))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidRequest))

	_, err = Load(writeFile(t, "c.toml", "x = 1"), WithLookupEnv(noEnv))
	require.Error(t, err)
}

func TestEnvOverridesFileAndOptionsOverrideEnv(t *testing.T) {
	path := writeFile(t, "c.yaml", sampleYAML)
	cfg, err := Load(path,
		envMap(map[string]string{
			"INVSYNC_API_ENDPOINT":    "https://other.example.com",
			"INVSYNC_MAX_RETRIES":     "2",
			"INVSYNC_REQUEST_TIMEOUT": "3s",
			"NETBOX_TOKEN":            "from-netbox-env",
		}),
		WithOverride(func(c *Config) { c.PageSize = 50 }),
	)
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com", cfg.APIEndpoint)
	assert.Equal(t, 2, cfg.Retries())
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "from-netbox-env", cfg.Token.Reveal())
	assert.Equal(t, 50, cfg.PageSize)
}

func TestEnvInvalidValue(t *testing.T) {
	_, err := Load("", envMap(map[string]string{"INVSYNC_MAX_RETRIES": "many"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVSYNC_MAX_RETRIES")
}

func TestLoadFromEnvOnly(t *testing.T) {
	cfg, err := Load("", envMap(map[string]string{
		"INVSYNC_API_ENDPOINT": "https://netbox.example.com",
		"INVSYNC_TOKEN":        "t0k",
		"INVSYNC_NATS_URL":     "nats://127.0.0.1:4222",
	}))
	require.NoError(t, err)
	assert.Equal(t, DefaultNATSSubject, cfg.NATSSubject)
	assert.Equal(t, DefaultNATSUpdateSubject, cfg.NATSUpdateSubject)
}

func TestTokenFile(t *testing.T) {
	tokenPath := writeFile(t, "token", "  plain-token\n")
	cfg, err := Load("", envMap(map[string]string{
		"INVSYNC_API_ENDPOINT": "https://netbox.example.com",
		"INVSYNC_TOKEN_FILE":   tokenPath,
	}))
	require.NoError(t, err)
	assert.Equal(t, "plain-token", cfg.Token.Reveal())
}

func TestSealedTokenFile(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	var sealed bytes.Buffer
	aw := armor.NewWriter(&sealed)
	w, err := age.Encrypt(aw, identity.Recipient())
	require.NoError(t, err)
	_, err = w.Write([]byte("sealed-token\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, aw.Close())

	tokenPath := writeFile(t, "token.age", sealed.String())
	identityPath := writeFile(t, "identity.txt", identity.String()+"\n")

	cfg, err := Load("", envMap(map[string]string{
		"INVSYNC_API_ENDPOINT":        "https://netbox.example.com",
		"INVSYNC_TOKEN_FILE":          tokenPath,
		"INVSYNC_TOKEN_IDENTITY_FILE": identityPath,
	}))
	require.NoError(t, err)
	assert.Equal(t, "sealed-token", cfg.Token.Reveal())

	other, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	wrongPath := writeFile(t, "wrong.txt", other.String()+"\n")
	_, err = Load("", envMap(map[string]string{
		"INVSYNC_API_ENDPOINT":        "https://netbox.example.com",
		"INVSYNC_TOKEN_FILE":          tokenPath,
		"INVSYNC_TOKEN_IDENTITY_FILE": wrongPath,
	}))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "sealed-token")
}

func validConfig() *Config {
	c := &Config{
		APIEndpoint: "https://netbox.example.com",
		Token:       "secret-token",
		GroupBy:     []string{"manufacturer"},
	}
	c.applyDefaults()
	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing endpoint", func(c *Config) { c.APIEndpoint = "" }, "api_endpoint is required"},
		{"relative endpoint", func(c *Config) { c.APIEndpoint = "netbox/api" }, "absolute http"},
		{"missing token", func(c *Config) { c.Token = "" }, "token is required"},
		{"negative retries", func(c *Config) { n := -1; c.MaxRetries = &n }, "max_retries"},
		{"retries fit refresh timeout", func(c *Config) {
			n := 4
			c.MaxRetries = &n
			c.RequestTimeout = time.Minute
		}, ""},
		{"retries exceed refresh timeout", func(c *Config) {
			n := 4
			c.MaxRetries = &n
			c.RequestTimeout = 61 * time.Second
		}, "more than the 5m0s refresh timeout"},
		{"long timeout without retries", func(c *Config) {
			n := 0
			c.MaxRetries = &n
			c.RequestTimeout = defaults.RefreshTimeout
		}, ""},
		{"short interval", func(c *Config) { c.RefreshInterval = time.Second }, "refresh_interval"},
		{"page size", func(c *Config) { c.PageSize = 5000 }, "page_size"},
		{"unknown attribute", func(c *Config) { c.GroupBy = []string{"rack"} }, "unknown attribute"},
		{"bad compose", func(c *Config) { c.Compose = map[string]ComposeSpec{"os": {Source: "nope"}} }, "compose os"},
		{"secret group var", func(c *Config) {
			c.GroupVars = map[string]map[string]any{"all": {"ansible_password": "x"}}
		}, "looks like a credential"},
		{"invalid group name", func(c *Config) {
			c.GroupVars = map[string]map[string]any{"Core Routers": {"a": 1}}
		}, "not a valid group name"},
		{"bad output", func(c *Config) {
			c.Outputs = []OutputSpec{{Target: "out.json", Format: "xml", Style: StyleInventory}}
		}, "format must be json or yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidRequest))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRulesOrder(t *testing.T) {
	c := validConfig()
	c.GroupBy = []string{"site", "manufacturers", "manufacturer"}
	c.Compose = map[string]ComposeSpec{"zz": {Source: "name"}, "aa": {Source: "platform"}}

	rules, err := c.Rules()
	require.NoError(t, err)
	require.Len(t, rules, 4)
	assert.Equal(t, grouping.GroupBy{Attribute: grouping.AttrSite}, rules[0])
	assert.Equal(t, grouping.GroupBy{Attribute: grouping.AttrManufacturer}, rules[1])
	assert.Equal(t, "aa", rules[2].(grouping.Compose).Name)
	assert.Equal(t, "zz", rules[3].(grouping.Compose).Name)

	e, err := c.Engine()
	require.NoError(t, err)
	assert.Len(t, e.Rules(), 4)
}

func TestSecretNeverRenders(t *testing.T) {
	s := Secret("0123456789abcdef")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v %s %#v", s, s, s)[:10])
	assert.NotContains(t, fmt.Sprintf("%v %s %#v %+v", s, s, s, struct{ T Secret }{s}), "0123456789abcdef")

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("cfg", "api", s, "config", &Config{Token: s})
	assert.NotContains(t, buf.String(), "0123456789abcdef")

	out, err := yaml.Marshal(struct {
		Token Secret `yaml:"token"`
	}{s})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "0123456789abcdef")

	assert.Empty(t, Secret("").String())
}
