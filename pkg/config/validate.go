package config

import (
	stderrors "errors"
	"fmt"
	"maps"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/netops-tools/invsync/pkg/defaults"
	"github.com/netops-tools/invsync/pkg/errors"
	"github.com/netops-tools/invsync/pkg/grouping"
)

const (
	maxRetriesLimit = 10
	maxPageSize     = 1000
)

// secretVarKey matches variable names that look like credentials. Connection
// secrets are supplied to the automation engine by other means and never live
// in the inventory.
var secretVarKey = regexp.MustCompile(`(?i)(pass(word|phrase)?|secret|token|private_key|api_key|credential)`)

// Validate checks the configuration and returns an INVALID_REQUEST error
// listing every problem found.
func (c *Config) Validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if c.APIEndpoint == "" {
		add("api_endpoint is required")
	} else if u, err := url.Parse(c.APIEndpoint); err != nil {
		add("api_endpoint: %v", err)
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("api_endpoint: must be an absolute http or https URL")
	}

	if c.Token.IsZero() {
		add("token is required (token, token_file or %sTOKEN)", EnvPrefix)
	}
	if c.TokenIdentityFile != "" && c.TokenFile == "" {
		add("token_identity_file requires token_file")
	}

	if c.RequestTimeout <= 0 {
		add("request_timeout must be positive")
	} else if c.RequestTimeout > defaults.RefreshTimeout {
		add("request_timeout must not exceed %s", defaults.RefreshTimeout)
	}
	if n := c.Retries(); n < 0 || n > maxRetriesLimit {
		add("max_retries must be between 0 and %d", maxRetriesLimit)
	} else if c.RequestTimeout > 0 && c.RequestTimeout <= defaults.RefreshTimeout {
		// One fully retried request must fit in a refresh cycle.
		if worst := time.Duration(n+1) * c.RequestTimeout; worst > defaults.RefreshTimeout {
			add("request_timeout %s with max_retries %d can take %s, more than the %s refresh timeout",
				c.RequestTimeout, n, worst, defaults.RefreshTimeout)
		}
	}
	if c.RefreshInterval < 0 || (c.RefreshInterval > 0 && c.RefreshInterval < defaults.RefreshMinInterval) {
		add("refresh_interval must be 0 (disabled) or at least %s", defaults.RefreshMinInterval)
	}
	if c.PageSize < 1 || c.PageSize > maxPageSize {
		add("page_size must be between 1 and %d", maxPageSize)
	}
	if c.RequestsPerSecond < 0 {
		add("requests_per_second must not be negative")
	}

	if _, err := c.Rules(); err != nil {
		problems = append(problems, err)
	}

	for _, group := range slices.Sorted(maps.Keys(c.GroupVars)) {
		if grouping.SanitizeGroupName(group) != group {
			add("group_vars: %q is not a valid group name", group)
		}
		for _, key := range slices.Sorted(maps.Keys(c.GroupVars[group])) {
			if secretVarKey.MatchString(key) {
				add("group_vars.%s: %q looks like a credential; secrets are not stored in the inventory", group, key)
			}
		}
	}

	if c.NATSURL != "" {
		if u, err := url.Parse(c.NATSURL); err != nil || u.Scheme == "" {
			add("nats_url: must be a URL such as nats://127.0.0.1:4222")
		}
	}

	for i, o := range c.Outputs {
		if strings.TrimSpace(o.Target) == "" {
			add("outputs[%d]: target is required", i)
		}
		if o.Format != "json" && o.Format != "yaml" {
			add("outputs[%d]: format must be json or yaml", i)
		}
		if o.Style != StyleInventory && o.Style != StyleAnsible {
			add("outputs[%d]: style must be %s or %s", i, StyleInventory, StyleAnsible)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.WrapWithContext(errors.ErrCodeInvalidRequest, "invalid configuration",
		stderrors.Join(problems...), map[string]any{"problems": len(problems)})
}

// Rules builds grouping rules: group_by entries in declaration order, then
// compose entries sorted by variable name.
func (c *Config) Rules() ([]grouping.Rule, error) {
	rules := make([]grouping.Rule, 0, len(c.GroupBy)+len(c.Compose))
	var problems []error

	seen := make(map[grouping.Attribute]struct{}, len(c.GroupBy))
	for _, attr := range c.GroupBy {
		r, err := grouping.NewGroupBy(attr)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		if _, dup := seen[r.Attribute]; dup {
			continue
		}
		seen[r.Attribute] = struct{}{}
		rules = append(rules, r)
	}

	for _, name := range slices.Sorted(maps.Keys(c.Compose)) {
		spec := c.Compose[name]
		r, err := grouping.NewCompose(name, spec.Source, spec.Map, spec.Default)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		rules = append(rules, r)
	}

	if len(problems) > 0 {
		return nil, stderrors.Join(problems...)
	}
	return rules, nil
}

// Engine returns a grouping engine for the configured rules and group vars.
func (c *Config) Engine() (*grouping.Engine, error) {
	rules, err := c.Rules()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid grouping rules", err)
	}
	return grouping.NewEngine(rules, c.GroupVars), nil
}
