package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/netops-tools/invsync/pkg/api"
	"github.com/netops-tools/invsync/pkg/config"
	"github.com/netops-tools/invsync/pkg/snapshot"
	"github.com/netops-tools/invsync/pkg/source"
)

func refreshCmd() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Fetch the source once and write the inventory.",
		Description: `Runs one refresh cycle: fetch devices (and virtual machines when enabled),
group and compose them, then write the result.

With --output the inventory goes to that destination in --style and
--format. Without it every output in the configuration file is written,
falling back to stdout when none is configured. The state file, when
configured, is updated so a later export --from-state or a daemon start
can reuse the result.

Examples:

  invsync -c invsync.yaml refresh
  invsync -c invsync.yaml refresh --style ansible -f json -o inventory.json
  invsync -c invsync.yaml refresh -o oci://registry.lab/inventory:latest`,
		Flags: []cli.Flag{
			outputFlag(),
			formatFlag(),
			styleFlag(),
			kubeconfigFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			outs, err := refreshOutputs(cmd, cfg)
			if err != nil {
				return err
			}
			defer api.CloseOutputs(outs)

			client, err := source.FromConfig(cfg, fmt.Sprintf("%s/%s", name, version))
			if err != nil {
				return err
			}
			s, status, err := refreshOnce(ctx, cfg, client)
			if err != nil {
				return err
			}

			for _, o := range outs {
				if err := o.Write(ctx, s); err != nil {
					return err
				}
			}

			slog.Info("inventory refreshed",
				"version", status.Version,
				"digest", status.Digest,
				"hosts", status.Hosts,
				"groups", status.Groups,
				"warnings", status.Warnings)
			return nil
		},
	}
}

// refreshOnce runs a single cycle against fetcher and waits for the state
// file to be written.
func refreshOnce(ctx context.Context, cfg *config.Config, fetcher snapshot.Fetcher) (*snapshot.Snapshot, snapshot.Status, error) {
	engine, err := cfg.Engine()
	if err != nil {
		return nil, snapshot.Status{}, err
	}

	var opts []snapshot.Option
	if cfg.StateFile != "" {
		opts = append(opts, snapshot.WithStore(snapshot.NewStore(cfg.StateFile)))
	}

	r := snapshot.NewRefresher(snapshot.NewCache(), fetcher, engine, opts...)
	s, err := r.Refresh(ctx, snapshot.TriggerManual)
	status := r.Status()
	r.Close()
	if err != nil {
		return nil, status, err
	}
	return s, status, nil
}

func refreshOutputs(cmd *cli.Command, cfg *config.Config) ([]*api.Output, error) {
	if cmd.IsSet("output") || len(cfg.Outputs) == 0 {
		return api.NewOutputs([]config.OutputSpec{{
			Target: cmd.String("output"),
			Format: cmd.String("format"),
			Style:  cmd.String("style"),
		}})
	}
	return api.NewOutputs(cfg.Outputs)
}
