package api

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"github.com/netops-tools/invsync/pkg/config"
	"github.com/netops-tools/invsync/pkg/export"
	"github.com/netops-tools/invsync/pkg/notify"
	"github.com/netops-tools/invsync/pkg/scheduler"
	"github.com/netops-tools/invsync/pkg/server"
	"github.com/netops-tools/invsync/pkg/snapshot"
	"github.com/netops-tools/invsync/pkg/source"
)

// Daemon owns every long-running part of invsyncd.
type Daemon struct {
	cfg       *config.Config
	refresher *snapshot.Refresher
	server    *server.Server
	scheduler *scheduler.Scheduler
	outputs   []*Output

	natsConn interface{ Drain() error }
	listener *notify.Listener

	// notify reports service state to the supervisor. Nil disables it.
	notify func(state string)

	closeOnce sync.Once
}

// DaemonOption customizes NewDaemon.
type DaemonOption func(*daemonOptions)

type daemonOptions struct {
	fetcher  snapshot.Fetcher
	natsConn notify.Conn
	notify   func(state string)
}

// WithFetcher replaces the source client, mainly for tests.
func WithFetcher(f snapshot.Fetcher) DaemonOption {
	return func(o *daemonOptions) {
		o.fetcher = f
	}
}

// WithNATSConn uses conn instead of dialing NATSURL.
func WithNATSConn(conn notify.Conn) DaemonOption {
	return func(o *daemonOptions) {
		o.natsConn = conn
	}
}

// WithSupervisorNotify replaces sd_notify.
func WithSupervisorNotify(fn func(state string)) DaemonOption {
	return func(o *daemonOptions) {
		o.notify = fn
	}
}

// NewDaemon wires the source, the refresher, the configured outputs, NATS
// and the HTTP server from cfg. Nothing runs until Run.
func NewDaemon(cfg *config.Config, opts ...DaemonOption) (*Daemon, error) {
	o := daemonOptions{notify: sdNotify}
	for _, opt := range opts {
		opt(&o)
	}

	engine, err := cfg.Engine()
	if err != nil {
		return nil, err
	}

	if o.fetcher == nil {
		c, cerr := source.FromConfig(cfg, userAgent())
		if cerr != nil {
			return nil, cerr
		}
		o.fetcher = c
	}

	d := &Daemon{cfg: cfg, notify: o.notify}

	outs, err := NewOutputs(cfg.Outputs)
	if err != nil {
		return nil, err
	}
	d.outputs = outs

	ropts := []snapshot.Option{snapshot.WithPublishHook(OutputHook(outs))}
	if cfg.StateFile != "" {
		ropts = append(ropts, snapshot.WithStore(snapshot.NewStore(cfg.StateFile)))
	}

	conn := o.natsConn
	if conn == nil && cfg.NATSURL != "" {
		nc, nerr := notify.Connect(cfg.NATSURL, name)
		if nerr != nil {
			CloseOutputs(outs)
			return nil, nerr
		}
		conn = nc
		d.natsConn = nc
	}
	if conn != nil {
		pub := notify.NewPublisher(conn, cmp.Or(cfg.NATSUpdateSubject, config.DefaultNATSUpdateSubject), version)
		ropts = append(ropts, snapshot.WithPublishHook(pub.Hook()))
	}

	d.refresher = snapshot.NewRefresher(snapshot.NewCache(), o.fetcher, engine, ropts...)
	if conn != nil {
		d.listener = notify.NewListener(conn, cmp.Or(cfg.NATSSubject, config.DefaultNATSSubject), d.refresher)
	}
	d.scheduler = scheduler.New(cfg.RefreshInterval, d.refresher)

	srv, err := d.newServer()
	if err != nil {
		d.close()
		return nil, err
	}
	d.server = srv
	return d, nil
}

func (d *Daemon) newServer() (*server.Server, error) {
	inventory, err := export.NewHandler(d.refresher.Cache())
	if err != nil {
		return nil, err
	}

	scfg := server.NewConfig()
	scfg.Name = name
	scfg.Version = version
	if d.cfg.ListenAddress != "" {
		if err := scfg.SetListenAddress(d.cfg.ListenAddress); err != nil {
			return nil, err
		}
	}

	return server.New(
		server.WithConfig(scfg),
		server.WithHandler(map[string]http.HandlerFunc{
			"/v1/inventory":    inventory.HandleInventory,
			"/v1/hosts/{name}": inventory.HandleHost,
			"/v1/refresh":      d.refresher.HandleRefresh,
			"/v1/status":       d.refresher.HandleStatus,
			"/v1/webhook":      d.refresher.WebhookHandler([]byte(d.cfg.WebhookSecret.Reveal())),
		}),
		server.WithReadiness(d.ready),
	), nil
}

// Handler returns the HTTP handler of the daemon, mainly for tests.
func (d *Daemon) Handler() http.Handler {
	return d.server.Handler()
}

// Refresher returns the daemon's refresher.
func (d *Daemon) Refresher() *snapshot.Refresher {
	return d.refresher
}

func (d *Daemon) ready() (bool, string) {
	if d.refresher.Cache().Ready() {
		return true, ""
	}
	return false, "no inventory snapshot has been published yet"
}

// Start restores the persisted snapshot, starts the NATS listener and
// kicks off the first refresh.
func (d *Daemon) Start() error {
	restored, err := d.refresher.RestoreState()
	if err != nil {
		// A corrupt state file must not keep the daemon from refreshing.
		slog.Warn("failed to restore inventory state", "path", d.cfg.StateFile, "error", err)
	} else if restored {
		slog.Info("serving restored inventory until the first refresh completes")
	}

	if d.listener != nil {
		if err := d.listener.Start(); err != nil {
			return err
		}
	}

	d.refresher.Trigger(snapshot.TriggerStartup)
	return nil
}

// Run starts the daemon and blocks until ctx is done, SIGINT or SIGTERM
// arrives, or a component fails. SIGHUP triggers a refresh.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.close()

	if err := d.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.server.Run(gctx)
	})
	g.Go(func() error {
		return d.scheduler.Run(gctx)
	})
	g.Go(func() error {
		d.handleHangup(gctx)
		return nil
	})
	g.Go(func() error {
		d.watchdog(gctx)
		return nil
	})

	d.sendNotify(daemon.SdNotifyReady)
	err := g.Wait()
	d.sendNotify(daemon.SdNotifyStopping)

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("daemon failed: %w", err)
	}
	return nil
}

func (d *Daemon) handleHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			slog.Info("refresh requested by signal")
			d.refresher.Trigger(snapshot.TriggerSignal)
		}
	}
}

// watchdog pings the supervisor at half the configured watchdog interval
// while the process is alive.
func (d *Daemon) watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 || d.notify == nil {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sendNotify(daemon.SdNotifyWatchdog)
		}
	}
}

func (d *Daemon) sendNotify(state string) {
	if d.notify != nil {
		d.notify(state)
	}
}

func (d *Daemon) close() {
	d.closeOnce.Do(d.release)
}

func (d *Daemon) release() {
	if d.listener != nil {
		if err := d.listener.Close(); err != nil {
			slog.Warn("failed to close nats listener", "error", err)
		}
	}
	if d.refresher != nil {
		d.refresher.Close()
	}
	if d.natsConn != nil {
		if err := d.natsConn.Drain(); err != nil {
			slog.Warn("failed to drain nats connection", "error", err)
		}
	}
	CloseOutputs(d.outputs)
}

func sdNotify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		slog.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		slog.Debug("sd_notify sent", "state", state)
	}
}
