package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/netops-tools/invsync/pkg/config"
	"github.com/netops-tools/invsync/pkg/logging"
)

const (
	name           = "invsyncd"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/netops-tools/invsync/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

func userAgent() string {
	return fmt.Sprintf("%s/%s", name, version)
}

// Serve loads the configuration at configPath (may be empty to rely on the
// environment) and runs the daemon until shutdown.
func Serve(ctx context.Context, configPath string, opts ...config.Option) error {
	logging.SetDefaultStructuredLogger(name, version)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	cfg, err := config.Load(configPath, opts...)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return err
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	d, err := NewDaemon(cfg)
	if err != nil {
		slog.Error("failed to initialize daemon", "error", err)
		return err
	}

	if err := d.Run(ctx); err != nil {
		slog.Error("daemon exited with error", "error", err)
		return err
	}
	return nil
}
