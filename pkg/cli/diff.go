package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/netops-tools/invsync/pkg/export"
	"github.com/netops-tools/invsync/pkg/serializer"
)

func diffCmd() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Compare two exported inventory documents.",
		ArgsUsage: "OLD NEW",
		Description: `Reports hosts added, removed or changed and group membership changes
between two documents written by export or refresh in the inventory style.

Each location is a file path, an http(s) URL or a ConfigMap (cm://namespace/name).

Examples:

  invsync diff yesterday.yaml today.yaml
  invsync diff cm://automation/inventory inventory.json --fail-on-change`,
		Flags: []cli.Flag{
			outputFlag(),
			formatFlag(),
			kubeconfigFlag(),
			&cli.BoolFlag{
				Name:  "fail-on-change",
				Usage: "Exit non-zero when the documents differ",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 2 {
				return fmt.Errorf("diff needs exactly two documents, got %d", cmd.NArg())
			}

			opts := []serializer.ReadOption{serializer.WithKubeconfig(cmd.String("kubeconfig"))}
			before, err := serializer.FromFile[export.Document](ctx, cmd.Args().Get(0), opts...)
			if err != nil {
				return err
			}
			after, err := serializer.FromFile[export.Document](ctx, cmd.Args().Get(1), opts...)
			if err != nil {
				return err
			}

			d := export.Compare(before, after)
			if err := writeResult(ctx, cmd, d); err != nil {
				return err
			}
			if cmd.Bool("fail-on-change") && !d.Empty() {
				return cli.Exit("inventories differ", 3)
			}
			return nil
		},
	}
}
