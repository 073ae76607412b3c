package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/netops-tools/invsync/pkg/config"
)

// configSummary is what config validate prints. The token is never part
// of it.
type configSummary struct {
	APIEndpoint     string   `json:"api_endpoint" yaml:"api_endpoint"`
	TokenFile       string   `json:"token_file,omitempty" yaml:"token_file,omitempty"`
	TokenSealed     bool     `json:"token_sealed" yaml:"token_sealed"`
	GroupBy         []string `json:"group_by" yaml:"group_by"`
	Compose         []string `json:"compose,omitempty" yaml:"compose,omitempty"`
	Rules           int      `json:"rules" yaml:"rules"`
	RefreshInterval string   `json:"refresh_interval" yaml:"refresh_interval"`
	RequestTimeout  string   `json:"request_timeout" yaml:"request_timeout"`
	MaxRetries      int      `json:"max_retries" yaml:"max_retries"`
	StateFile       string   `json:"state_file,omitempty" yaml:"state_file,omitempty"`
	ListenAddress   string   `json:"listen_address,omitempty" yaml:"listen_address,omitempty"`
	Outputs         []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	NATS            bool     `json:"nats" yaml:"nats"`
	Webhook         bool     `json:"webhook_signed" yaml:"webhook_signed"`
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the configuration.",
		Commands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Load and validate the configuration, then print a summary.",
				Description: `Loads the file given with --config, applies INVSYNC_* environment
overrides and flags, validates the result and compiles the grouping rules.
Secrets are never printed.`,
				Flags: []cli.Flag{
					outputFlag(),
					formatFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					engine, err := cfg.Engine()
					if err != nil {
						return err
					}
					sum := summarize(cfg)
					sum.Rules = len(engine.Rules())
					return writeResult(ctx, cmd, sum)
				},
			},
		},
	}
}

func summarize(cfg *config.Config) configSummary {
	sum := configSummary{
		APIEndpoint:     cfg.APIEndpoint,
		TokenFile:       cfg.TokenFile,
		TokenSealed:     cfg.TokenIdentityFile != "",
		GroupBy:         cfg.GroupBy,
		RefreshInterval: cfg.RefreshInterval.String(),
		RequestTimeout:  cfg.RequestTimeout.String(),
		MaxRetries:      cfg.Retries(),
		StateFile:       cfg.StateFile,
		ListenAddress:   cfg.ListenAddress,
		NATS:            cfg.NATSURL != "",
		Webhook:         !cfg.WebhookSecret.IsZero(),
	}
	for name := range cfg.Compose {
		sum.Compose = append(sum.Compose, name)
	}
	slices.Sort(sum.Compose)
	for _, o := range cfg.Outputs {
		sum.Outputs = append(sum.Outputs, fmt.Sprintf("%s (%s, %s)", o.Target, o.Style, o.Format))
	}
	return sum
}
