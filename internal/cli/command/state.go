package command

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statecache/internal/cli/output"
	"github.com/yndnr/statecache/internal/storage"
)

// ExitInconsistent is the exit code of verify when the state file and the
// chunk files come from different writes.
const ExitInconsistent = 2

// InspectCommand returns the inspect command.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:   "inspect",
		Usage:  "List the state and chunk files from their headers",
		Action: inspect,
	}
}

// VerifyCommand returns the verify command.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:   "verify",
		Usage:  "Read the whole state back and check it",
		Action: verify,
	}
}

// PurgeCommand returns the purge command.
func PurgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete the state file and all chunk files",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y", "force"},
				Usage:   "Confirm deletion",
			},
		},
		Action: purge,
	}
}

func inspect(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}

	inv, err := st.Inspect()
	if err != nil {
		return err
	}
	if err := e.render(inv, func() *output.Table { return inventoryTable(inv, e.wide) }); err != nil {
		return err
	}
	if e.format == output.FormatTable {
		fmt.Fprintf(e.out, "\n%s: %d records in %d chunk files, %s, consistent=%t\n",
			inv.Dir, inv.Records, len(inv.Chunks), output.FormatBytes(inv.TotalBytes), inv.Consistent)
	}
	return nil
}

func inventoryTable(inv *storage.Inventory, wide bool) *output.Table {
	t := &output.Table{}
	headers := []string{"NAME", "KIND", "RECORDS", "SIZE", "GENERATION"}
	if wide {
		headers = append(headers, "CODEC", "CREATED")
	}
	t.SetHeaders(headers...)

	row := func(name, kind string, records, size int64, gen, codecName string, created int64) {
		cells := []string{name, kind, strconv.FormatInt(records, 10), output.FormatBytes(size), gen}
		if wide {
			cells = append(cells, codecName, formatMillis(created))
		}
		t.AddRow(cells...)
	}

	if s := inv.State; s != nil {
		row(s.Name, "state", s.Records, s.Size, s.Generation, s.Codec, s.CreatedAt)
	}
	for _, ch := range inv.Chunks {
		row(ch.Name, "chunk", ch.Entries, ch.Size, ch.Generation, ch.Codec, ch.CreatedAt)
	}
	return t
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}

// verifySummary is the outcome of verify.
type verifySummary struct {
	Dir        string        `json:"dir" yaml:"dir"`
	Generation string        `json:"generation" yaml:"generation"`
	Records    int           `json:"records" yaml:"records"`
	Chunks     int           `json:"chunks" yaml:"chunks"`
	Bytes      int64         `json:"bytes" yaml:"bytes"`
	Consistent bool          `json:"consistent" yaml:"consistent"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`

	ChunkGenerations []string `json:"chunk_generations,omitempty" yaml:"chunk_generations,omitempty" table:"wide"`
}

func verify(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}

	_, res, err := st.Read()
	if err != nil {
		return err
	}

	summary := verifySummary{
		Dir:              st.Dir(),
		Generation:       res.Generation,
		Records:          res.Records,
		Chunks:           res.Chunks.Chunks,
		Bytes:            res.StateBytes + res.Chunks.Bytes,
		Consistent:       res.Consistent,
		Elapsed:          res.Elapsed,
		ChunkGenerations: res.Chunks.Generations,
	}
	if err := e.render(summary, nil); err != nil {
		return err
	}
	if !res.Consistent {
		return cli.Exit("state and chunk files come from different writes", ExitInconsistent)
	}
	return nil
}

func purge(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	if !c.Bool("yes") {
		return fmt.Errorf("refusing to purge %s without --yes",
			filepath.Join(e.cfg.Cache.BaseDir, e.cfg.Cache.Dir))
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}

	removed, err := st.Purge()
	if err != nil {
		return err
	}
	if e.format == output.FormatTable {
		fmt.Fprintf(e.out, "Removed %d files from %s.\n", removed, st.Dir())
		return nil
	}
	return e.render(map[string]any{"dir": st.Dir(), "removed": removed}, nil)
}
