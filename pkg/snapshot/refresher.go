package snapshot

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"

	"github.com/netops-tools/invsync/pkg/defaults"
	"github.com/netops-tools/invsync/pkg/errors"
	"github.com/netops-tools/invsync/pkg/grouping"
	"github.com/netops-tools/invsync/pkg/inventory"
)

// Trigger names what started a refresh.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerTimer   Trigger = "timer"
	TriggerWebhook Trigger = "webhook"
	TriggerNATS    Trigger = "nats"
	TriggerSignal  Trigger = "signal"
	TriggerStartup Trigger = "startup"
)

const refreshKey = "refresh"

// Fetcher returns the raw source records. *source.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context) (*inventory.Raw, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (*inventory.Raw, error)

func (f FetcherFunc) Fetch(ctx context.Context) (*inventory.Raw, error) {
	return f(ctx)
}

// PublishHook observes each newly published snapshot. Hooks run in publish
// order on a background goroutine and never see an older snapshot after a
// newer one.
type PublishHook func(ctx context.Context, s *Snapshot)

// Option configures a Refresher.
type Option func(*Refresher)

// WithStore persists every published snapshot.
func WithStore(s *Store) Option {
	return func(r *Refresher) {
		r.store = s
	}
}

// WithTimeout bounds each refresh cycle.
func WithTimeout(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithPublishHook registers a hook.
func WithPublishHook(h PublishHook) Option {
	return func(r *Refresher) {
		r.hooks = append(r.hooks, h)
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(c clock.PassiveClock) Option {
	return func(r *Refresher) {
		r.clock = c
	}
}

// Refresher runs refresh cycles against a Cache, at most one at a time.
type Refresher struct {
	cache   *Cache
	fetcher Fetcher
	engine  *grouping.Engine
	store   *Store
	timeout time.Duration
	hooks   []PublishHook
	clock   clock.PassiveClock

	ctx    context.Context
	cancel context.CancelFunc
	flight singleflight.Group
	busy   atomic.Bool

	bgMu   sync.Mutex
	closed bool
	wg     sync.WaitGroup

	hookMu     sync.Mutex
	hookedUpTo uint64

	mu sync.Mutex
	st Status
}

// NewRefresher returns a Refresher publishing into cache.
func NewRefresher(cache *Cache, fetcher Fetcher, engine *grouping.Engine, opts ...Option) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Refresher{
		cache:   cache,
		fetcher: fetcher,
		engine:  engine,
		timeout: defaults.RefreshTimeout,
		clock:   clock.RealClock{},
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the cache the refresher publishes into.
func (r *Refresher) Cache() *Cache {
	return r.cache
}

// RestoreState loads the state file into an empty cache. A missing file is
// not an error.
func (r *Refresher) RestoreState() (bool, error) {
	if r.store == nil {
		return false, nil
	}
	s, err := r.store.Load()
	if stderrors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ok, err := r.cache.Restore(s)
	if err != nil || !ok {
		return false, err
	}
	if pub, err := r.cache.Get(); err == nil {
		observePublished(pub)
	}
	slog.Warn("serving restored inventory until the first refresh completes",
		"path", r.store.Path(),
		"version", s.Version,
		"digest", s.Digest.Short(),
		"created_at", s.CreatedAt,
		"hosts", len(s.Hosts))
	return true, nil
}

// Refresh runs a cycle, or joins the one in flight, and returns the
// published snapshot. ctx bounds only the wait: an abandoned cycle still
// completes under the refresher's lifecycle.
func (r *Refresher) Refresh(ctx context.Context, trigger Trigger) (*Snapshot, error) {
	if r.ctx.Err() != nil {
		return nil, errors.New(errors.ErrCodeUnavailable, "refresher is closed")
	}
	if r.busy.Load() {
		refreshCoalesced.Inc()
		slog.Debug("joining refresh in flight", "trigger", trigger)
	}

	ch := r.flight.DoChan(refreshKey, func() (any, error) {
		return r.run(trigger)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, errors.Wrap(errors.ErrCodeTimeout, "stopped waiting for refresh", ctx.Err())
	}
}

// Trigger starts a refresh in the background.
func (r *Refresher) Trigger(trigger Trigger) {
	r.background(func() {
		if _, err := r.Refresh(r.ctx, trigger); err != nil {
			slog.Debug("background refresh failed", "trigger", trigger, "error", err)
		}
	})
}

// Close cancels any cycle in flight and waits for background work.
func (r *Refresher) Close() {
	r.bgMu.Lock()
	r.closed = true
	r.bgMu.Unlock()

	r.cancel()
	r.wg.Wait()
}

func (r *Refresher) background(fn func()) {
	r.bgMu.Lock()
	defer r.bgMu.Unlock()
	if r.closed {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *Refresher) run(trigger Trigger) (*Snapshot, error) {
	r.busy.Store(true)
	defer r.busy.Store(false)

	id := uuid.NewString()
	log := slog.With("refresh_id", id, "trigger", trigger)
	start := r.clock.Now()
	r.markAttempt(start, trigger)

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	log.Debug("refresh started")
	candidate, err := r.build(ctx, log)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		err = r.cycleError(err)
		status := "error"
		if r.ctx.Err() != nil {
			status = "cancelled"
		}
		refreshTotal.WithLabelValues(string(trigger), status).Inc()
		refreshDuration.WithLabelValues(string(trigger)).Observe(r.clock.Since(start).Seconds())
		r.markFailure(err)
		log.Error("refresh failed, keeping previous snapshot",
			"error", err,
			"code", errors.CodeOf(err),
			"duration", r.clock.Since(start))
		return nil, err
	}

	prev, _ := r.cache.Get()
	pub, err := r.cache.Publish(candidate)
	if err != nil {
		refreshTotal.WithLabelValues(string(trigger), "error").Inc()
		r.markFailure(err)
		log.Error("refresh produced an inconsistent snapshot", "error", err)
		return nil, err
	}

	status := "success"
	if prev.SameContent(pub) {
		status = "unchanged"
	}
	refreshTotal.WithLabelValues(string(trigger), status).Inc()
	refreshDuration.WithLabelValues(string(trigger)).Observe(r.clock.Since(start).Seconds())
	lastSuccess.Set(float64(r.clock.Now().Unix()))
	observePublished(pub)
	r.markSuccess()

	log.Info("inventory published",
		"version", pub.Version,
		"digest", pub.Digest.Short(),
		"hosts", len(pub.Hosts),
		"groups", len(pub.Groups),
		"skipped", len(pub.Warnings),
		"changed", status == "success",
		"duration", r.clock.Since(start))

	r.afterPublish(pub, log)
	return pub, nil
}

// build runs fetch, normalize and grouping in isolation from the cache.
func (r *Refresher) build(ctx context.Context, log *slog.Logger) (*Snapshot, error) {
	raw, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	hosts, skipped := inventory.Normalize(raw)
	for _, s := range skipped {
		log.Warn("skipped source record",
			"resource", s.Resource,
			"index", s.Index,
			"name", s.Name,
			"reason", s.Reason)
	}
	if len(hosts) == 0 {
		log.Warn("source returned no usable hosts", "records", raw.Len())
	}

	res := r.engine.Evaluate(hosts)
	if len(res.UnknownGroupVars) > 0 {
		log.Warn("group_vars name groups that do not exist", "groups", res.UnknownGroupVars)
	}
	return New(hosts, res, skipped, r.clock.Now())
}

// cycleError gives plain context errors a code.
func (r *Refresher) cycleError(err error) error {
	if errors.CodeOf(err) != "" {
		return err
	}
	switch {
	case r.ctx.Err() != nil:
		return errors.Wrap(errors.ErrCodeUnavailable, "refresh cancelled by shutdown", err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.ErrCodeTimeout, "refresh exceeded its time limit", err)
	default:
		return errors.Wrap(errors.ErrCodeInternal, "refresh failed", err)
	}
}

func (r *Refresher) afterPublish(pub *Snapshot, log *slog.Logger) {
	if r.store == nil && len(r.hooks) == 0 {
		return
	}
	r.background(func() {
		r.hookMu.Lock()
		defer r.hookMu.Unlock()
		if pub.Version <= r.hookedUpTo {
			return
		}
		r.hookedUpTo = pub.Version

		if r.store != nil {
			if err := r.store.Save(pub); err != nil {
				log.Warn("failed to persist snapshot", "path", r.store.Path(), "error", err)
			}
		}
		for _, h := range r.hooks {
			h(r.ctx, pub)
		}
	})
}
