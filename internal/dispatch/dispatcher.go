package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/docguard/internal/analysis"
	"github.com/roach88/docguard/internal/doc"
	"github.com/roach88/docguard/internal/telemetry"
)

// DefaultWorkers is the worker pool size when WithWorkers is not given.
const DefaultWorkers = 4

// ErrStopped is returned by TriggerAnalysis after Stop.
var ErrStopped = errors.New("dispatcher stopped")

// Fetcher reads the current snapshot of a document.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (doc.Document, error)
}

// Analyzer runs one analysis pass. Implemented by *analysis.Manager.
type Analyzer interface {
	Analyze(ctx context.Context, d doc.Document) (analysis.Report, error)
}

// Dispatcher runs analysis tasks on a pool of workers.
type Dispatcher struct {
	fetcher  Fetcher
	analyzer Analyzer
	queue    *taskQueue
	workers  int
	kind     string
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the pool size. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics records queue activity in metrics.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

// WithKind sets the kind stamped on tasks created by TriggerAnalysis.
// Defaults to KindDocumentationAnalysis.
func WithKind(kind string) Option {
	return func(d *Dispatcher) {
		d.kind = kind
	}
}

// New creates a Dispatcher. Call Run to start the workers.
func New(fetcher Fetcher, analyzer Analyzer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		fetcher:  fetcher,
		analyzer: analyzer,
		queue:    newTaskQueue(),
		workers:  DefaultWorkers,
		kind:     KindDocumentationAnalysis,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TriggerAnalysis queues analysis of document id. It never blocks on
// analysis work. coalesced is true when a task for the document was
// already pending and absorbed this one.
func (d *Dispatcher) TriggerAnalysis(id string, version int64) (coalesced bool, err error) {
	return d.Enqueue(Task{DocumentID: id, Version: version, Kind: d.kind})
}

// Enqueue queues t, merging it with a pending task of the same key.
func (d *Dispatcher) Enqueue(t Task) (coalesced bool, err error) {
	coalesced, ok := d.queue.Enqueue(t)
	if !ok {
		return false, fmt.Errorf("enqueue %s: %w", t, ErrStopped)
	}
	d.metrics.TaskQueued(coalesced)
	d.metrics.SetPending(d.queue.Len())
	d.logger.Debug("task queued",
		"document", t.DocumentID,
		"version", t.Version,
		"kind", t.Kind,
		"coalesced", coalesced,
	)
	return coalesced, nil
}

// Run starts the workers and blocks until Stop has been called and the
// queue is drained, or ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started", "workers", d.workers)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		worker := i
		g.Go(func() error {
			return d.work(ctx, worker)
		})
	}
	err := g.Wait()

	d.logger.Info("dispatcher stopped", "pending", d.queue.Len())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Dispatcher) work(ctx context.Context, worker int) error {
	for {
		if t, ok := d.queue.TryDequeue(); ok {
			d.metrics.SetPending(d.queue.Len())
			d.process(ctx, worker, t)
			d.queue.Done(t.Key())
			continue
		}

		if d.queue.Closed() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.queue.Wait():
		}
	}
}

// process runs one task. Failures are logged and the task is dropped.
func (d *Dispatcher) process(ctx context.Context, worker int, t Task) {
	logger := d.logger.With("document", t.DocumentID, "version", t.Version, "kind", t.Kind, "worker", worker)

	current, err := d.fetcher.Fetch(ctx, t.DocumentID)
	if errors.Is(err, doc.ErrNotFound) {
		logger.Debug("document gone, dropping task")
		return
	}
	if err != nil {
		d.metrics.TaskFailed()
		logger.Error("fetch for analysis failed", "error", err)
		return
	}

	if current.Version < t.Version {
		logger.Debug("fetched version older than task version", "fetched", current.Version)
	}

	report, err := d.analyzer.Analyze(ctx, current)
	if err != nil {
		d.metrics.TaskFailed()
		if errors.Is(err, doc.ErrConflict) {
			// A newer save raced the pass; its own event requeues the document.
			logger.Warn("analysis lost a version race", "error", err)
			return
		}
		logger.Error("documentation analysis failed", "error", err)
		return
	}

	logger.Debug("task done", "changed", report.Changed, "result_version", report.Version)
}

// Idle reports whether no task is pending or running.
func (d *Dispatcher) Idle() bool {
	return d.queue.Idle()
}

// Pending returns the number of tasks waiting for a worker.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// Stop rejects new tasks. Run returns once queued tasks are processed.
func (d *Dispatcher) Stop() {
	d.queue.Close()
}
