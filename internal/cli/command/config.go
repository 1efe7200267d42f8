package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statecache/internal/cli/output"
	"github.com/yndnr/statecache/internal/config"
)

// ConfigCommand returns the config command group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "FILE",
				Action:    configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	// Nested sections read better as YAML than as a flat table.
	format := e.format
	if format == output.FormatTable {
		format = output.FormatYAML
	}
	return output.NewFormatter(format, e.wide).Format(e.out, e.cfg)
}

func configValidate(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("configuration file required")
	}
	if _, err := config.Load(path, nil); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(e.out, "%s: OK\n", path)
	return nil
}
