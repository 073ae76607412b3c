// Copyright 2026 The invsync Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"

	"github.com/netops-tools/invsync/pkg/defaults"
	"github.com/netops-tools/invsync/pkg/errors"
)

const (
	// DefaultListenAddress is where the daemon serves HTTP when unset.
	DefaultListenAddress = ":8080"

	// DefaultNATSSubject is the refresh trigger subject.
	DefaultNATSSubject = "invsync.refresh"

	// DefaultNATSUpdateSubject is where update events are published.
	DefaultNATSUpdateSubject = "invsync.updated"
)

// Output document styles.
const (
	StyleInventory = "inventory"
	StyleAnsible   = "ansible"
)

// Config is the complete invsync configuration.
type Config struct {
	// APIEndpoint is the source API base URL, for example https://netbox.example.com.
	APIEndpoint string `yaml:"api_endpoint"`

	// Token authenticates against the source. Never logged.
	Token Secret `yaml:"token"`

	// TokenFile is read when Token is empty.
	TokenFile string `yaml:"token_file"`

	// TokenIdentityFile holds age identities; when set TokenFile is decrypted with them.
	TokenIdentityFile string `yaml:"token_identity_file"`

	GroupBy   []string                  `yaml:"group_by"`
	Compose   map[string]ComposeSpec    `yaml:"compose"`
	GroupVars map[string]map[string]any `yaml:"group_vars"`

	// RefreshInterval enables timer-driven refresh when non-zero.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxRetries      *int          `yaml:"max_retries"`

	PageSize               int     `yaml:"page_size"`
	IncludeVirtualMachines bool    `yaml:"include_virtual_machines"`
	RequestsPerSecond      float64 `yaml:"requests_per_second"`
	InsecureSkipVerify     bool    `yaml:"insecure_skip_verify"`

	// StateFile persists the last published snapshot across restarts.
	StateFile string `yaml:"state_file"`

	ListenAddress string `yaml:"listen_address"`
	WebhookSecret Secret `yaml:"webhook_secret"`

	NATSURL           string `yaml:"nats_url"`
	NATSSubject       string `yaml:"nats_subject"`
	NATSUpdateSubject string `yaml:"nats_update_subject"`

	// Outputs are written after every published snapshot.
	Outputs []OutputSpec `yaml:"outputs"`
}

// OutputSpec is one destination for the rendered inventory document.
type OutputSpec struct {
	// Target is a file path, "-" for stdout, cm://namespace/name or oci://registry/repo:tag.
	Target string `yaml:"target"`
	Format string `yaml:"format"`
	Style  string `yaml:"style"`
}

// ComposeSpec declares one composed host variable. In YAML it is either a
// bare source attribute or a mapping with source, map and default.
type ComposeSpec struct {
	Source  string            `yaml:"source"`
	Map     map[string]string `yaml:"map,omitempty"`
	Default *string           `yaml:"default,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand.
func (c *ComposeSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*c = ComposeSpec{Source: node.Value}
		return nil
	}
	type plain ComposeSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = ComposeSpec(p)
	return nil
}

// Retries returns the configured retry count.
func (c *Config) Retries() int {
	return ptr.Deref(c.MaxRetries, defaults.SourceMaxRetries)
}

// Option customizes Load.
type Option func(*loader)

type loader struct {
	lookupEnv func(string) (string, bool)
	overrides []func(*Config)
}

// WithLookupEnv replaces os.LookupEnv, mainly for tests.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(l *loader) {
		l.lookupEnv = fn
	}
}

// WithOverride applies fn after the file and environment, before defaults and
// token resolution. CLI flags use this.
func WithOverride(fn func(*Config)) Option {
	return func(l *loader) {
		l.overrides = append(l.overrides, fn)
	}
}

// Load reads the configuration from path (optional), applies environment
// overrides, option overrides and defaults, resolves the token and validates
// the result. Errors are INVALID_REQUEST structured errors.
func Load(path string, opts ...Option) (*Config, error) {
	l := &loader{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}

	cfg := &Config{}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, l.lookupEnv); err != nil {
		return nil, err
	}
	for _, fn := range l.overrides {
		fn(cfg)
	}

	if cfg.Token.IsZero() && cfg.TokenFile != "" {
		tok, err := readTokenFile(cfg.TokenFile, cfg.TokenIdentityFile)
		if err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest,
				"failed to resolve token", err, map[string]any{"token_file": cfg.TokenFile})
		}
		cfg.Token = tok
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile parses YAML, or JSON with comments, into cfg. Unknown keys are
// rejected.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeInvalidRequest,
			"failed to read config file", err, map[string]any{"path": path})
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	case ".json", ".jsonc":
		// JSON is a subset of YAML once comments and trailing commas are gone.
		data = jsonc.ToJSON(data)
	default:
		return errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"unsupported config file extension", map[string]any{"path": path})
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.WrapWithContext(errors.ErrCodeInvalidRequest,
			"failed to parse config file", err, map[string]any{"path": path})
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.APIEndpoint = strings.TrimSpace(c.APIEndpoint)
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaults.SourceRequestTimeout
	}
	if c.MaxRetries == nil {
		c.MaxRetries = ptr.To(defaults.SourceMaxRetries)
	}
	if c.PageSize == 0 {
		c.PageSize = defaults.SourcePageSize
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = defaults.SourceRequestsPerSecond
	}
	if c.ListenAddress == "" {
		c.ListenAddress = DefaultListenAddress
	}
	if c.NATSURL != "" {
		if c.NATSSubject == "" {
			c.NATSSubject = DefaultNATSSubject
		}
		if c.NATSUpdateSubject == "" {
			c.NATSUpdateSubject = DefaultNATSUpdateSubject
		}
	}
	for i := range c.Outputs {
		if c.Outputs[i].Format == "" {
			c.Outputs[i].Format = "json"
		}
		if c.Outputs[i].Style == "" {
			c.Outputs[i].Style = StyleInventory
		}
	}
}

// String summarizes the configuration without credentials.
func (c *Config) String() string {
	return fmt.Sprintf("endpoint=%s group_by=%v compose=%d refresh_interval=%s request_timeout=%s max_retries=%d",
		c.APIEndpoint, c.GroupBy, len(c.Compose), c.RefreshInterval, c.RequestTimeout, c.Retries())
}
