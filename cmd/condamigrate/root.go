package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/git-pkgs/condamigrate/client"
	"github.com/git-pkgs/condamigrate/internal/cache"
	"github.com/git-pkgs/condamigrate/internal/catalog"
	"github.com/git-pkgs/condamigrate/internal/config"
	"github.com/git-pkgs/condamigrate/internal/plan"

	_ "github.com/git-pkgs/condamigrate/all"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// app carries the state shared by every subcommand once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "condamigrate",
		Short: "Migrate Pipfile.lock projects to conda environments",
		Long: `condamigrate moves Python projects managed with pipenv to conda.

Every locked package is searched in a conda catalog. Packages with a conda
build compatible with the base profile (openssl, python and pip) are
installed with conda, the others with pip. Catalog answers are kept in a
local cache shared between runs and processes.

Examples:
  condamigrate convert .                 Write <project>.conda.yaml
  condamigrate search numpy requests     Check which packages conda knows
  condamigrate clean --aggressive        Empty the query cache`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	defaults := config.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/condamigrate/config.yaml)")
	pf.BoolP("verbose", "v", false, "enable debug logging")
	pf.String("cache-dir", defaults.CacheDir, "conda query cache directory")
	pf.IntP("jobs", "j", defaults.Jobs, "number of concurrent catalog queries, you should not go beyond 10")
	pf.Duration("ttl", defaults.TTL, "age after which cached answers are evicted")
	pf.Duration("lock-timeout", defaults.LockTimeout, "how long to wait for the cache lock (0 waits forever)")
	pf.Duration("query-timeout", defaults.QueryTimeout, "timeout of a single catalog query (0 disables it)")
	pf.String("backend", defaults.Backend, "catalog backend: mamba, conda or anaconda")
	pf.String("base-url", "", "catalog endpoint, or executable for conda and mamba")
	pf.StringSlice("channels", nil, "channels to search, in order")

	root.AddCommand(newSearchCmd(a))
	root.AddCommand(newConvertCmd(a))
	root.AddCommand(newCleanCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, path, err := config.Load(config.LoadOptions{
		ConfigFilePath: a.cfgFile,
		Flags:          cmd.Flags(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		ReportTimestamp: true,
		Prefix:          config.AppName,
	})
	if cfg.Verbose {
		a.logger.SetLevel(log.DebugLevel)
	}
	if path != "" {
		a.logger.Debug("loaded config", "path", path)
	}
	return nil
}

// searcher builds the configured catalog backend behind a circuit breaker.
func (a *app) searcher() (catalog.Searcher, error) {
	s, err := catalog.New(a.cfg.Backend, catalog.Options{
		BaseURL:  a.cfg.BaseURL,
		Channels: a.cfg.Channels,
		Client:   client.DefaultClient().WithUserAgent(config.AppName + "/" + Version),
	})
	if err != nil {
		return nil, err
	}
	return catalog.NewBreakerSearcher(a.cfg.Backend, s), nil
}

func (a *app) cacheOptions() []cache.Option {
	return []cache.Option{
		cache.WithTTL(a.cfg.TTL),
		cache.WithLockTimeout(a.cfg.LockTimeout),
		cache.WithLogger(a.logger),
	}
}

func (a *app) planOptions() []plan.Option {
	return []plan.Option{
		plan.WithJobs(a.cfg.Jobs),
		plan.WithQueryTimeout(a.cfg.QueryTimeout),
		plan.WithLogger(a.logger),
	}
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := fang.Execute(
		ctx,
		newRootCmd(),
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		return 1
	}
	return 0
}
