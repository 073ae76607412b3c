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

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/netops-tools/invsync/pkg/config"
	"github.com/netops-tools/invsync/pkg/defaults"
	"github.com/netops-tools/invsync/pkg/errors"
	"github.com/netops-tools/invsync/pkg/inventory"
	"github.com/netops-tools/invsync/pkg/serializer"
	"github.com/netops-tools/invsync/pkg/version"
)

const (
	// HeaderAPIVersion carries the source API version on every response.
	HeaderAPIVersion = "API-Version"

	// resourceStatus is probed before listing to verify credentials.
	resourceStatus = "status"

	// maxBodyBytes bounds a single page.
	maxBodyBytes = 64 << 20
)

// MinAPIVersion is the oldest source API version the normalizer understands.
var MinAPIVersion = version.MustParseVersion("3.5")

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithPageSize sets the list page size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRequestTimeout bounds each individual request attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithRetryPolicy sets the per-request retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithRateLimit bounds outbound requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithVirtualMachines also fetches virtual machines.
func WithVirtualMachines(include bool) Option {
	return func(c *Client) {
		c.includeVMs = include
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification for the
// default HTTP client.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Client) {
		c.insecure = skip
	}
}

// WithMinAPIVersion sets the version below which a warning is logged.
func WithMinAPIVersion(v version.Version) Option {
	return func(c *Client) {
		c.minVersion = v
	}
}

func withSleep(fn sleepFunc) Option {
	return func(c *Client) {
		c.sleep = fn
	}
}

// Client fetches raw inventory from a NetBox-compatible REST API.
// It is safe for concurrent use.
type Client struct {
	base           *url.URL
	token          config.Secret
	http           *http.Client
	insecure       bool
	limiter        *rate.Limiter
	policy         RetryPolicy
	pageSize       int
	includeVMs     bool
	requestTimeout time.Duration
	userAgent      string
	minVersion     version.Version
	sleep          sleepFunc

	mu         sync.RWMutex
	apiVersion string
}

// New returns a Client for the API at endpoint. The endpoint may include or
// omit the trailing /api path.
func New(endpoint string, token config.Secret, opts ...Option) (*Client, error) {
	base, err := apiRoot(endpoint)
	if err != nil {
		return nil, err
	}
	if token.IsZero() {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "source token is required")
	}

	c := &Client{
		base:           base,
		token:          token,
		policy:         DefaultRetryPolicy(),
		pageSize:       defaults.SourcePageSize,
		requestTimeout: defaults.SourceRequestTimeout,
		userAgent:      "invsync",
		minVersion:     MinAPIVersion,
		sleep:          sleepContext,
	}
	WithRateLimit(defaults.SourceRequestsPerSecond)(c)
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = serializer.NewHttpReader(
			serializer.WithUserAgent(c.userAgent),
			serializer.WithTotalTimeout(c.requestTimeout),
			serializer.WithResponseHeaderTimeout(c.requestTimeout),
			serializer.WithInsecureSkipVerify(c.insecure),
		).Client
	}
	return c, nil
}

// FromConfig builds a Client from validated configuration.
func FromConfig(cfg *config.Config, ua string, opts ...Option) (*Client, error) {
	policy := DefaultRetryPolicy()
	policy.MaxRetries = cfg.Retries()

	base := []Option{
		WithPageSize(cfg.PageSize),
		WithRequestTimeout(cfg.RequestTimeout),
		WithRetryPolicy(policy),
		WithRateLimit(cfg.RequestsPerSecond),
		WithVirtualMachines(cfg.IncludeVirtualMachines),
		WithInsecureSkipVerify(cfg.InsecureSkipVerify),
		WithUserAgent(ua),
	}
	return New(cfg.APIEndpoint, cfg.Token, append(base, opts...)...)
}

// apiRoot normalizes endpoint to the API root ending in "/api/".
func apiRoot(endpoint string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"source endpoint must be an absolute http or https URL", map[string]any{"endpoint": endpoint})
	}
	p := strings.TrimRight(u.Path, "/")
	p = strings.TrimSuffix(p, "/api")
	u.Path = p + "/api/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// APIVersion returns the API version reported by the last status probe.
func (c *Client) APIVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiVersion
}

// Fetch retrieves every configured resource. Credentials are verified with a
// single status request first, so an invalid token fails fast. Resources are
// then listed concurrently; any failure fails the whole fetch.
func (c *Client) Fetch(ctx context.Context) (*inventory.Raw, error) {
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}

	raw := &inventory.Raw{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := c.List(gctx, inventory.ResourceDevices)
		raw.Devices = recs
		return err
	})
	g.Go(func() error {
		recs, err := c.List(gctx, inventory.ResourcePlatforms)
		raw.Platforms = recs
		return err
	})
	if c.includeVMs {
		g.Go(func() error {
			recs, err := c.List(gctx, inventory.ResourceVirtualMachines)
			raw.VirtualMachines = recs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("source fetch complete",
		"devices", len(raw.Devices),
		"virtual_machines", len(raw.VirtualMachines),
		"platforms", len(raw.Platforms))
	return raw, nil
}

// Ping requests the status endpoint, verifying credentials and recording the
// API version.
func (c *Client) Ping(ctx context.Context) error {
	var status map[string]any
	hdr, err := c.get(ctx, resourceStatus, c.resourceURL(resourceStatus, nil), &status)
	if err != nil {
		return err
	}
	c.checkAPIVersion(hdr.Get(HeaderAPIVersion))
	return nil
}

func (c *Client) checkAPIVersion(raw string) {
	if raw == "" {
		slog.Debug("source did not report an API version")
		return
	}
	c.mu.Lock()
	c.apiVersion = raw
	c.mu.Unlock()

	v, err := version.ParseVersion(raw)
	if err != nil {
		slog.Warn("unparseable source API version", "api_version", raw, "error", err)
		return
	}
	if !v.AtLeast(c.minVersion) {
		slog.Warn("source API version is older than supported",
			"api_version", v.String(), "minimum", c.minVersion.String())
	}
}

// page is the list envelope returned by every collection endpoint.
type page struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []json.RawMessage `json:"results"`
}

// List returns every record of resource, following next links until the
// last page.
func (c *Client) List(ctx context.Context, resource string) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("offset", "0")
	next := c.resourceURL(resource, q)

	records := make([]json.RawMessage, 0)
	seen := make(map[string]struct{})
	expected := -1
	for next != "" {
		if _, dup := seen[next]; dup {
			return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest,
				"source pagination loops", map[string]any{"resource": resource, "url": next})
		}
		seen[next] = struct{}{}

		var p page
		if _, err := c.get(ctx, resource, next, &p); err != nil {
			return nil, err
		}
		if expected < 0 {
			expected = p.Count
		}
		records = append(records, p.Results...)

		next = ""
		if p.Next != nil && *p.Next != "" {
			u, err := c.followURL(*p.Next)
			if err != nil {
				return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest,
					"invalid next page link", err, map[string]any{"resource": resource})
			}
			next = u
		}
		slog.Debug("fetched page", "resource", resource, "records", len(records), "count", p.Count)
	}

	if expected >= 0 && expected != len(records) {
		slog.Warn("source record count changed during pagination",
			"resource", resource, "expected", expected, "received", len(records))
	}
	recordsFetched.WithLabelValues(resource).Set(float64(len(records)))
	return records, nil
}

func (c *Client) resourceURL(resource string, q url.Values) string {
	u := c.base.JoinPath(resource + "/")
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// followURL keeps the configured scheme and host for next links, which the
// source may build from its own, possibly internal, hostname.
func (c *Client) followURL(next string) (string, error) {
	n, err := url.Parse(next)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(n.Path, c.base.Path) {
		return "", fmt.Errorf("next link %q leaves the API root", n.Path)
	}
	u := *c.base
	u.Path = n.Path
	u.RawPath = ""
	u.RawQuery = n.RawQuery
	return u.String(), nil
}

// get performs one logical request through the retry state machine and
// decodes the JSON body into v.
func (c *Client) get(ctx context.Context, resource, target string, v any) (http.Header, error) {
	var hdr http.Header
	m := newMachine(c.policy, c.sleep, resource)
	err := m.run(ctx, func(ctx context.Context) error {
		h, err := c.attempt(ctx, resource, target, v)
		if err == nil {
			hdr = h
		}
		return err
	})
	return hdr, err
}

// attempt is a single request bounded by the per-request timeout.
func (c *Client) attempt(ctx context.Context, resource, target string, v any) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTimeout, "rate limiter wait cancelled", err)
	}

	actx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Token "+c.token.Reveal())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	requestDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(resource, "transport_error").Inc()
		return nil, classifyTransport(resource, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		requestsTotal.WithLabelValues(resource, "transport_error").Inc()
		return nil, classifyTransport(resource, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		requestsTotal.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, classifyStatus(resource, resp, body, time.Now())
	}

	if err := json.Unmarshal(body, v); err != nil {
		requestsTotal.WithLabelValues(resource, "decode_error").Inc()
		// A truncated body decodes as invalid JSON; treat it as transient.
		return nil, errors.WrapWithContext(errors.ErrCodeNetwork, "failed to decode source response", err,
			map[string]any{"resource": resource})
	}
	requestsTotal.WithLabelValues(resource, "ok").Inc()
	return resp.Header, nil
}
