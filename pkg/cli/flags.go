package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/netops-tools/invsync/pkg/api"
	"github.com/netops-tools/invsync/pkg/config"
	"github.com/netops-tools/invsync/pkg/export"
	"github.com/netops-tools/invsync/pkg/serializer"
)

var (
	// stdout receives results written to "-".
	stdout io.Writer = os.Stdout
	// errWriter receives diagnostics that are not part of a command's result.
	errWriter io.Writer = os.Stderr
)

// Flags are built per command tree: urfave/cli keeps parsed values on the
// flag itself.

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the configuration file (.yaml, .yml, .json or .jsonc)",
		Sources: cli.EnvVars("INVSYNC_CONFIG"),
	}
}

func logLevelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "info",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}

func endpointFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "endpoint",
		Usage: "Source API base URL, overrides api_endpoint",
	}
}

func groupByFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:  "group-by",
		Usage: "Host attribute to group by, overrides group_by (can be repeated)",
	}
}

func stateFileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "state-file",
		Usage: "Path of the persisted snapshot, overrides state_file",
	}
}

func outputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage: `Output destination: file path, "-" for stdout, ConfigMap URI
		(cm://namespace/name) or OCI reference (oci://registry/repository:tag).`,
		Value: "-",
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   fmt.Sprintf("Output format (%v)", serializer.SupportedFormats()),
		Value:   string(serializer.FormatYAML),
	}
}

func styleFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "style",
		Usage: fmt.Sprintf("Document style (%s, %s)", export.StyleInventory, export.StyleAnsible),
		Value: string(export.StyleInventory),
	}
}

func kubeconfigFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "kubeconfig",
		Aliases: []string{"k"},
		Usage:   "Path to kubeconfig for cm:// locations (defaults to KUBECONFIG or ~/.kube/config)",
		Sources: cli.EnvVars("KUBECONFIG"),
	}
}

// parseOutputFormat reads --format. Unlike serializer.ParseFormat an empty
// value is an error: the flag always has a default.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.Format(cmd.String("format"))
	if f == "" || f.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q", f)
	}
	return f, nil
}

// loadConfig reads the configuration named by --config and applies the
// global flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(cmd.String("config"), configOverrides(cmd)...)
}

func configOverrides(cmd *cli.Command) []config.Option {
	return []config.Option{config.WithOverride(func(c *config.Config) {
		if v := cmd.String("endpoint"); v != "" {
			c.APIEndpoint = v
		}
		if v := cmd.StringSlice("group-by"); len(v) > 0 {
			c.GroupBy = v
		}
		if v := cmd.String("state-file"); v != "" {
			c.StateFile = v
		}
	})}
}

// writeResult serializes v to --output in --format.
func writeResult(ctx context.Context, cmd *cli.Command, v any) error {
	format, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}
	return writeTo(ctx, cmd.String("output"), format, v)
}

func writeTo(ctx context.Context, target string, format serializer.Format, v any) error {
	if target == "" || target == "-" {
		return serializer.NewWriter(format, stdout).Serialize(ctx, v)
	}

	ser, err := api.NewSink(target, format, nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := serializer.Close(ser); cerr != nil {
			fmt.Fprintf(errWriter, "failed to close output: %v\n", cerr)
		}
	}()
	if err := ser.Serialize(ctx, v); err != nil {
		return fmt.Errorf("failed to write %s: %w", serializer.Describe(ser), err)
	}
	return nil
}
