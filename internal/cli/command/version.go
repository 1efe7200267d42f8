package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statecache/internal/cli/output"
	"github.com/yndnr/statecache/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			e, err := getEnv(c)
			if err != nil {
				return err
			}
			if e.format == output.FormatTable {
				fmt.Fprintf(e.out, "statecache %s\n", buildinfo.String())
				return nil
			}
			return e.render(buildinfo.Get(), nil)
		},
	}
}
