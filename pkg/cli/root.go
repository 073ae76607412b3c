/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/netops-tools/invsync/pkg/logging"
)

const (
	name           = "invsync"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "NetBox to Ansible inventory sync",
		Version:               fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		EnableShellCompletion: true,
		Description: `invsync pulls devices and virtual machines from a NetBox source, groups
them by declared rules, composes host variables and publishes the result as
an Ansible inventory.

Configuration comes from the file given with --config, INVSYNC_* environment
variables and the flags below, in increasing order of precedence.`,
		Flags: []cli.Flag{
			configFlag(),
			logLevelFlag(),
			endpointFlag(),
			groupByFlag(),
			stateFileFlag(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String("log-level"))
			slog.Debug("starting",
				"name", name,
				"version", version,
				"commit", commit,
				"date", date)
			return ctx, nil
		},
		Commands: []*cli.Command{
			refreshCmd(),
			exportCmd(),
			serveCmd(),
			diffCmd(),
			configCmd(),
		},
	}
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
