package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/javaperf/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Checks a javaperf configuration file against the schema and for
invalid values.

Examples:
  javaperf config validate                    # Validates default config locations
  javaperf -c javaperf.toml config validate   # Validates a specific file`,
				Action: runConfigValidate,
			},
			{
				Name:   "show",
				Usage:  "Show the effective configuration as TOML",
				Action: runConfigShow,
			},
		},
	}
}

func configLoadOptions(c *cli.Context) []config.LoadOption {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	return opts
}

func runConfigValidate(c *cli.Context) error {
	w := c.App.Writer
	result, err := config.LoadConfig(configLoadOptions(c)...)
	if err != nil {
		fmt.Fprintln(w, color.RedString("Configuration validation failed:"))
		fmt.Fprintf(w, "  - %s\n", err)
		return err
	}

	if result.Source != "" {
		fmt.Fprintln(w, color.GreenString("Configuration valid: %s", result.Source))
	} else {
		fmt.Fprintln(w, color.YellowString("No config file found. Default configuration is valid."))
	}
	return nil
}

func runConfigShow(c *cli.Context) error {
	w := c.App.Writer
	result, err := config.LoadConfig(configLoadOptions(c)...)
	if err != nil {
		return err
	}

	if result.Source != "" {
		fmt.Fprintf(w, "# Configuration from: %s\n\n", result.Source)
	} else {
		fmt.Fprintln(w, "# Default configuration (no config file found)")
	}

	content, err := toml.Marshal(result.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprint(w, string(content))
	return nil
}
