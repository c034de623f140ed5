package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// ConfigCommand groups configuration subcommands.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Configuration operations",
		Subcommands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Load the configuration and report the resolved generation backend",
				Action: configValidateAction,
			},
		},
	}
}

func configValidateAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	w := ctx.App.Writer
	fmt.Fprintln(w, "Configuration is valid")
	fmt.Fprintf(w, "  backend:  %s\n", cfg.Generation.Backend)
	fmt.Fprintf(w, "  model:    %s\n", cfg.ActiveModel())
	if cfg.Generation.BaseURL != "" {
		fmt.Fprintf(w, "  base url: %s\n", cfg.Generation.BaseURL)
	}
	fmt.Fprintf(w, "  route:    POST %s\n", cfg.RelayPath)
	return nil
}
