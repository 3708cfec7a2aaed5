package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/docguard/internal/analysis"
	"github.com/roach88/docguard/internal/check"
	"github.com/roach88/docguard/internal/check/rules"
	"github.com/roach88/docguard/internal/config"
	"github.com/roach88/docguard/internal/store"
	"github.com/roach88/docguard/internal/telemetry"
)

// env is the wiring shared by commands that touch the database.
type env struct {
	cfg    config.Config
	store  *store.Store
	logger *slog.Logger

	// all holds every built-in check; active holds the configured subset.
	all    *check.Registry
	active *check.Registry
}

// loadConfig resolves configuration: file, then environment, then flags.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, nil
}

// newLogger writes text logs to w. Verbose lowers the level to debug;
// otherwise only records at or above level are written.
func newLogger(w io.Writer, verbose bool, level slog.Level) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openEnv loads config, opens the store and builds the check registries.
// The caller must call close.
func openEnv(opts *RootOptions, cmd *cobra.Command, level slog.Level) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose, level)

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	all, active, err := buildRegistries(cfg, st, logger)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to configure checks", err)
	}

	f := newFormatter(opts, cmd)
	f.VerboseLog("database: %s", cfg.Database)
	f.VerboseLog("active checks: %s", strings.Join(active.Names(), ", "))

	return &env{cfg: cfg, store: st, logger: logger, all: all, active: active}, nil
}

func buildRegistries(cfg config.Config, fetcher rules.Fetcher, logger *slog.Logger) (all, active *check.Registry, err error) {
	all = check.NewRegistry()
	if err := rules.Register(all, fetcher, logger); err != nil {
		return nil, nil, err
	}
	active, err = all.Select(cfg.Checks)
	if err != nil {
		return nil, nil, err
	}
	return all, active, nil
}

// newManager builds an analysis manager over the active checks.
func (e *env) newManager(metrics *telemetry.Metrics) *analysis.Manager {
	return analysis.NewManager(e.store, e.active,
		analysis.WithSystemAuthor(e.cfg.SystemAuthor),
		analysis.WithMetrics(metrics),
		analysis.WithTracer(telemetry.Tracer()),
		analysis.WithLogger(e.logger),
	)
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing database", "error", err)
	}
}

// cmdContext returns the command's context, or Background when the
// command was not started through Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
