package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/netops-tools/invsync/pkg/export"
	"github.com/netops-tools/invsync/pkg/serializer"
	"github.com/netops-tools/invsync/pkg/snapshot"
	"github.com/netops-tools/invsync/pkg/source"
)

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Render the inventory, usable as an Ansible inventory script.",
		Description: `Renders an inventory snapshot without publishing anywhere else.

The snapshot comes from --from-state, or from a live fetch using the
configuration when the flag is absent.

--list and --host follow the Ansible dynamic inventory script protocol and
always print JSON on stdout, so the command can back an inventory script:

  #!/bin/sh
  exec invsync -c /etc/invsync.yaml export --from-state /var/lib/invsync/state "$@"

Examples:

  invsync export --from-state state.cbor.zst --style ansible -f json
  invsync -c invsync.yaml export --list
  invsync -c invsync.yaml export --host R1`,
		Flags: []cli.Flag{
			outputFlag(),
			formatFlag(),
			styleFlag(),
			&cli.StringFlag{
				Name:  "from-state",
				Usage: "Read the snapshot from this state file instead of fetching",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "Print the Ansible inventory as JSON",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Print the variables of one host as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("list") && cmd.IsSet("host") {
				return fmt.Errorf("--list and --host are mutually exclusive")
			}

			s, err := loadSnapshot(ctx, cmd)
			if err != nil {
				return err
			}

			switch {
			case cmd.Bool("list"):
				return writeTo(ctx, "-", serializer.FormatJSON, export.RenderAnsible(s))
			case cmd.IsSet("host"):
				// Unknown hosts print an empty object, as Ansible expects.
				vars, ok := export.AnsibleHost(s, cmd.String("host"))
				if !ok {
					vars = map[string]any{}
				}
				return writeTo(ctx, "-", serializer.FormatJSON, vars)
			}

			style, err := export.ParseStyle(cmd.String("style"))
			if err != nil {
				return err
			}
			doc, err := export.RenderStyle(s, style)
			if err != nil {
				return err
			}
			return writeResult(ctx, cmd, doc)
		},
	}
}

// loadSnapshot returns the snapshot named by --from-state, or fetches one.
func loadSnapshot(ctx context.Context, cmd *cli.Command) (*snapshot.Snapshot, error) {
	if path := cmd.String("from-state"); path != "" {
		return snapshot.NewStore(path).Load()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	client, err := source.FromConfig(cfg, fmt.Sprintf("%s/%s", name, version))
	if err != nil {
		return nil, err
	}
	s, _, err := refreshOnce(ctx, cfg, client)
	return s, err
}
