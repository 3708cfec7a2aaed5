package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/docguard/internal/dispatch"
	"github.com/roach88/docguard/internal/source"
	"github.com/roach88/docguard/internal/telemetry"
)

// shutdownTimeout bounds the metrics server's graceful shutdown.
const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	MetricsAddr string

	// ready, when set, is called once the pipeline is running (for testing).
	ready func(*dispatch.Dispatcher)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Watch a page directory and analyze changes",
		Long: `Import a directory of pages, then keep watching it.

Every save of a documentation page queues an asynchronous analysis. Bursts
of saves to one page collapse into a single pass over its latest content.
Prometheus metrics are served on /metrics when an address is configured.

Stops on SIGINT or SIGTERM after in-flight analyses finish.

Example:
  docguard serve --db ./docguard.db --metrics-addr :9090 ./pages`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "address for the /metrics endpoint (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, args []string, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd, slog.LevelInfo)
	if err != nil {
		return err
	}
	defer e.close()
	logger := e.logger

	dir := e.cfg.Source.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return NewExitError(ExitCommandError, "no directory given and source.dir is not configured")
	}
	metricsAddr := e.cfg.MetricsAddr
	if opts.MetricsAddr != "" {
		metricsAddr = opts.MetricsAddr
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmdContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	dispatcher := dispatch.New(e.store, e.newManager(metrics),
		dispatch.WithWorkers(e.cfg.Workers),
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(metrics),
	)
	listener := dispatch.NewListener(dispatcher,
		dispatch.WithSkipSelfSaves(e.cfg.SkipSelfSaves),
		dispatch.WithListenerLogger(logger),
	)
	e.store.Subscribe(listener.Func())

	importer := source.NewImporter(e.store, dir,
		source.WithExtensions(e.cfg.Source.Extensions...),
		source.WithAuthor(e.cfg.Source.Author),
		source.WithLogger(logger),
	)
	results, err := importer.ImportDir(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "initial import failed", err)
	}
	logger.Info("initial import complete", "dir", dir, "files", len(results))

	watcher, err := source.NewWatcher(dir, e.cfg.Source.Debounce, importer.Apply, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create watcher", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start watcher", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(context.WithoutCancel(gctx))
	})
	g.Go(func() error {
		<-gctx.Done()
		// Stop the source first so no new saves arrive, then drain.
		watcher.Stop()
		dispatcher.Stop()
		return nil
	})

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           metricsHandler(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s. Press Ctrl-C to stop.\n", dir)
	if opts.ready != nil {
		opts.ready(dispatcher)
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "serve failed", err)
	}
	logger.Info("stopped gracefully")
	return nil
}

// metricsHandler serves registry on /metrics.
func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	return mux
}
