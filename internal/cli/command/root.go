package command

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statecache/internal/cli/output"
	"github.com/yndnr/statecache/internal/config"
	"github.com/yndnr/statecache/internal/core/domain"
	"github.com/yndnr/statecache/internal/infra/buildinfo"
	"github.com/yndnr/statecache/internal/storage"
	"github.com/yndnr/statecache/internal/telemetry/logger"
	"github.com/yndnr/statecache/internal/telemetry/metric"
)

const envKey = "env"

// App creates the CLI application.
//
// Errors are returned from Run, never turned into a process exit; callers
// map cli.ExitCoder errors to exit codes.
func App() *cli.App {
	return &cli.App{
		Name:    "statecache",
		Usage:   "Inspect and maintain a chunked state cache",
		Version: buildinfo.Get().Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			InspectCommand(),
			VerifyCommand(),
			EstimateCommand(),
			GenerateCommand(),
			PurgeCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Metadata:       make(map[string]any),
		Before:         before,
		After:          after,
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "Base directory holding the cache directory",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			EnvVars: []string{"STATECACHE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "metrics-textfile",
			Usage: "Write metrics in Prometheus text format to this file on exit",
		},
	}
}

// overrides returns the configuration keys set by global flags.
func overrides(c *cli.Context) map[string]any {
	m := make(map[string]any)
	if c.IsSet("dir") {
		m["cache.base_dir"] = c.String("dir")
	}
	if c.IsSet("log-level") {
		m["log.level"] = c.String("log-level")
	}
	if c.IsSet("metrics-textfile") {
		m["metrics.textfile"] = c.String("metrics-textfile")
	}
	return m
}

// env is the state shared by the commands of one invocation.
type env struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metric.Registry
	format  output.Format
	wide    bool
	out     io.Writer

	store *storage.Store
}

func before(c *cli.Context) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}

	cfg, err := config.Load(c.String("config"), overrides(c))
	if err != nil {
		return err
	}

	lc := config.LoggerConfig(cfg)
	lc.Output = c.App.ErrWriter
	log, err := logger.New(lc)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	logger.SetDefault(log)

	opID, err := domain.NewGeneration()
	if err != nil {
		return err
	}
	c.Context = logger.WithLogger(logger.WithOperation(c.Context, opID), log)

	c.App.Metadata[envKey] = &env{
		cfg:     cfg,
		log:     logger.L(c.Context),
		metrics: metric.NewRegistry(),
		format:  format,
		wide:    c.Bool("wide"),
		out:     c.App.Writer,
	}
	return nil
}

// after exports metrics once the command has run, whatever its outcome.
func after(c *cli.Context) error {
	e, ok := c.App.Metadata[envKey].(*env)
	if !ok || e.cfg.Metrics.Textfile == "" {
		return nil
	}

	dir := filepath.Join(e.cfg.Cache.BaseDir, e.cfg.Cache.Dir)
	if err := e.metrics.Register(metric.NewDirCollector(dir, e.cfg.Cache.StateFile, e.cfg.Cache.ChunkPrefix)); err != nil {
		return fmt.Errorf("register cache collector: %w", err)
	}
	if err := e.metrics.WriteToTextfile(e.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	e.log.Debug("metrics written", "path", e.cfg.Metrics.Textfile)
	return nil
}

// getEnv retrieves the invocation environment set up by before.
func getEnv(c *cli.Context) (*env, error) {
	if e, ok := c.App.Metadata[envKey].(*env); ok {
		return e, nil
	}
	return nil, domain.ErrInternal.WithDetails("command environment not initialized")
}

// openStore creates the store on first use, so commands that never touch
// the cache leave the file system alone.
func (e *env) openStore() (*storage.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	st, err := storage.New(config.ToStoreConfig(e.cfg, e.log, e.metrics))
	if err != nil {
		return nil, err
	}
	e.store = st
	return st, nil
}

// render writes data in the selected format. In table format, table is
// used when non-nil instead of the generic struct rendering.
func (e *env) render(data any, table func() *output.Table) error {
	if e.format == output.FormatTable && table != nil {
		return table().Render(e.out)
	}
	return output.NewFormatter(e.format, e.wide).Format(e.out, data)
}
