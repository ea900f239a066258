package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-sync/internal/config"
	"github.com/inodb/vibe-sync/internal/metagenome"
	"github.com/inodb/vibe-sync/internal/metrics"
)

// app carries the state shared by every subcommand.
type app struct {
	v       *viper.Viper
	logger  *zap.Logger
	cfgFile string
	verbose bool

	project string
	session string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "vibe-sync",
		Short: "Synchronize genome coordinates across variant files",
		Long: `vibe-sync aligns the genomes of one or more VCF files onto a shared
meta-genome coordinate line, padding every genome so insertions line up,
and answers zoom-dependent display queries over the result.

Settings are read from ~/.vibe-sync.yaml and VIBE_SYNC_* environment
variables (for example VIBE_SYNC_SESSION_DRIVER=sqlite).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.vibe-sync.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Log progress to stderr")
	pf.StringVarP(&a.project, "project", "p", "", "Project definition file")
	pf.StringVarP(&a.session, "session", "s", "", "Load a saved session instead of a project")
	pf.Int("workers", 0, "Chromosomes compiled in parallel (default: number of CPUs)")
	pf.Bool("strict", false, "Fail on synchronization errors instead of skipping them")
	pf.String("session-driver", "", "Session store: file, sqlite or s3")
	_ = a.v.BindPFlag("compile.workers", pf.Lookup("workers"))
	_ = a.v.BindPFlag("compile.strict", pf.Lookup("strict"))
	_ = a.v.BindPFlag("session.driver", pf.Lookup("session-driver"))

	cmd.AddCommand(newSyncCmd(a))
	cmd.AddCommand(newQueryCmd(a))
	cmd.AddCommand(newVariantCmd(a))
	cmd.AddCommand(newTrackCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newSessionCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// init reads the config file and builds the logger.
func (a *app) init() error {
	config.SetDefaults(a.v)
	a.v.SetEnvPrefix("VIBE_SYNC")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigName(".vibe-sync")
		a.v.SetConfigType("yaml")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	logger, err := newLogger(a.verbose)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

func (a *app) settings() (config.Settings, error) {
	return config.Load(a.v)
}

// newContext creates an empty metagenome context from the settings. m may
// be nil.
func (a *app) newContext(s config.Settings, m *metrics.Collector) *metagenome.Context {
	opts := []metagenome.Option{
		metagenome.WithWorkers(s.Compile.Workers),
		metagenome.WithStrict(s.Compile.Strict),
		metagenome.WithLogger(a.logger),
	}
	if m != nil {
		opts = append(opts, metagenome.WithMetrics(m))
	}
	return metagenome.New(opts...)
}

// load fills mg from --session when given, else from --project. Partial
// synchronization failures are reported on stderr and only fail the command
// in strict mode.
func (a *app) load(ctx context.Context, cmd *cobra.Command, s config.Settings, mg *metagenome.Context) error {
	if a.session != "" {
		store, closeStore, err := s.OpenStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		snap, err := store.Load(ctx, a.session)
		if err != nil {
			return fmt.Errorf("loading session %s: %w", a.session, err)
		}
		if stale := snap.Stale(); len(stale) > 0 {
			a.logger.Warn("session source files changed since save",
				zap.String("session", a.session), zap.Strings("files", stale))
		}
		return mg.Restore(snap)
	}

	if a.project == "" {
		return usagef("a project file (--project) or a saved session (--session) is required")
	}
	p, err := config.LoadProject(a.project)
	if err != nil {
		return err
	}
	err = mg.Synchronize(ctx, p.Associations())
	var syncErr *metagenome.SyncError
	if errors.As(err, &syncErr) && !s.Compile.Strict {
		for _, e := range syncErr.Errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", e)
		}
		return nil
	}
	return err
}

// lengths returns the compiled length of every chromosome.
func lengths(mg *metagenome.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, chrom := range mg.Chromosomes() {
		n, err := mg.ChromosomeLength(chrom)
		if err != nil {
			return nil, err
		}
		out[chrom] = n
	}
	return out, nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}

func minimumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  exactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibe-sync version %s (%s) built %s\n", version, commit, date)
		},
	}
}
