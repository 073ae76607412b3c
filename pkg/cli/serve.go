package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/netops-tools/invsync/pkg/api"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the refresh daemon and HTTP API.",
		Description: `Runs invsyncd in the foreground: periodic refreshes, webhook and NATS
triggers, configured outputs and the HTTP API on listen_address.

Send SIGHUP to refresh immediately, SIGINT or SIGTERM to stop.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return api.Serve(ctx, cmd.String("config"), configOverrides(cmd)...)
		},
	}
}
