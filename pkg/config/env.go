package config

import (
	"fmt"
	"strconv"
	"time"

	"k8s.io/utils/ptr"

	"github.com/netops-tools/invsync/pkg/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INVSYNC_"

// envBinding maps one environment variable onto the config. Fallbacks are
// consulted, in order, when the primary variable is unset.
type envBinding struct {
	name      string
	fallbacks []string
	apply     func(c *Config, v string) error
}

var envBindings = []envBinding{
	{name: "API_ENDPOINT", fallbacks: []string{"NETBOX_API"}, apply: func(c *Config, v string) error {
		c.APIEndpoint = v
		return nil
	}},
	{name: "TOKEN", fallbacks: []string{"NETBOX_TOKEN"}, apply: func(c *Config, v string) error {
		c.Token = Secret(v)
		return nil
	}},
	{name: "TOKEN_FILE", apply: func(c *Config, v string) error {
		c.TokenFile = v
		return nil
	}},
	{name: "TOKEN_IDENTITY_FILE", apply: func(c *Config, v string) error {
		c.TokenIdentityFile = v
		return nil
	}},
	{name: "REFRESH_INTERVAL", apply: durationSetter(func(c *Config, d time.Duration) { c.RefreshInterval = d })},
	{name: "REQUEST_TIMEOUT", apply: durationSetter(func(c *Config, d time.Duration) { c.RequestTimeout = d })},
	{name: "MAX_RETRIES", apply: func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.MaxRetries = ptr.To(n)
		return nil
	}},
	{name: "PAGE_SIZE", apply: func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.PageSize = n
		return nil
	}},
	{name: "INCLUDE_VIRTUAL_MACHINES", apply: func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.IncludeVirtualMachines = b
		return nil
	}},
	{name: "STATE_FILE", apply: func(c *Config, v string) error {
		c.StateFile = v
		return nil
	}},
	{name: "LISTEN_ADDRESS", apply: func(c *Config, v string) error {
		c.ListenAddress = v
		return nil
	}},
	{name: "WEBHOOK_SECRET", apply: func(c *Config, v string) error {
		c.WebhookSecret = Secret(v)
		return nil
	}},
	{name: "NATS_URL", apply: func(c *Config, v string) error {
		c.NATSURL = v
		return nil
	}},
}

func durationSetter(set func(*Config, time.Duration)) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		set(c, d)
		return nil
	}
}

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		key := EnvPrefix + b.name
		v, ok := lookup(key)
		for _, fb := range b.fallbacks {
			if ok {
				break
			}
			key = fb
			v, ok = lookup(fb)
		}
		if !ok || v == "" {
			continue
		}
		if err := b.apply(c, v); err != nil {
			return errors.WrapWithContext(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid value for %s", key), err, map[string]any{"env": key})
		}
	}
	return nil
}
