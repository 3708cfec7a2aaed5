package analysis

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/docguard/internal/check"
	"github.com/roach88/docguard/internal/doc"
	"github.com/roach88/docguard/internal/telemetry"
)

// Storage is the part of the storage collaborator the manager needs.
type Storage interface {
	Saver
	Clone(d doc.Document) doc.Document
}

// Report describes one completed analysis pass.
type Report struct {
	DocumentID string `json:"document"`

	// Version is the document version after the pass. It only moves when
	// Changed is true.
	Version int64 `json:"version"`

	Changed    bool  `json:"changed"`
	Candidates int   `json:"candidates"`
	Added      []int `json:"added"`
	Removed    []int `json:"removed"`

	// Document is the resulting snapshot.
	Document doc.Document `json:"-"`
}

// Manager runs one analysis pass: checks, reconciliation, commit.
//
// Thread-safety: Analyze is safe for concurrent use on distinct documents.
// Concurrent passes on the same document are arbitrated by the store's
// version check; the loser fails with a PersistenceError.
type Manager struct {
	storage Storage
	runner  *Runner
	gate    *Gate
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSystemAuthor sets the identity analysis saves are attributed to.
func WithSystemAuthor(author string) ManagerOption {
	return func(m *Manager) {
		m.gate = NewGate(m.storage, author)
	}
}

// WithMetrics records pass outcomes in metrics.
func WithMetrics(metrics *telemetry.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithTracer replaces the default tracer.
func WithTracer(tracer trace.Tracer) ManagerOption {
	return func(m *Manager) {
		m.tracer = tracer
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager running the checks of registry and saving
// through storage.
func NewManager(storage Storage, registry *check.Registry, opts ...ManagerOption) *Manager {
	m := &Manager{
		storage: storage,
		runner:  NewRunner(registry),
		gate:    NewGate(storage, DefaultSystemAuthor),
		tracer:  telemetry.Tracer(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Analyze runs one pass over d.
//
// The pass works on a clone of d. When it fails, the error is an
// *AnalysisError and nothing has been persisted.
func (m *Manager) Analyze(ctx context.Context, d doc.Document) (Report, error) {
	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "analysis.Analyze",
		trace.WithAttributes(
			attribute.String("document.id", d.ID),
			attribute.Int64("document.version", d.Version),
		),
	)
	defer span.End()

	working := m.storage.Clone(d)

	candidates, err := m.runner.Run(ctx, working)
	if err != nil {
		return Report{}, m.fail(span, start, d, err)
	}
	span.SetAttributes(attribute.Int("analysis.candidates", len(candidates)))

	rec := Reconcile(candidates, working.Slots)
	saved, changed, err := m.gate.Commit(ctx, working, rec.Slots, rec.Changed())
	if err != nil {
		return Report{}, m.fail(span, start, d, err)
	}

	report := Report{
		DocumentID: d.ID,
		Version:    saved.Version,
		Changed:    changed,
		Candidates: len(candidates),
		Added:      nonNil(rec.Added),
		Removed:    nonNil(rec.Removed),
		Document:   saved,
	}

	outcome := telemetry.OutcomeUnchanged
	if changed {
		outcome = telemetry.OutcomeChanged
	}
	span.SetAttributes(attribute.String("analysis.outcome", outcome))
	span.SetStatus(codes.Ok, "")
	m.metrics.ObserveAnalysis(outcome, time.Since(start).Seconds(), len(rec.Added), len(rec.Removed))

	m.logger.Debug("analysis complete",
		"document", d.ID,
		"version", report.Version,
		"changed", changed,
		"added", len(rec.Added),
		"removed", len(rec.Removed),
	)
	return report, nil
}

func (m *Manager) fail(span trace.Span, start time.Time, d doc.Document, cause error) error {
	err := &AnalysisError{DocumentID: d.ID, Err: cause}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("analysis.outcome", telemetry.OutcomeFailed))
	m.metrics.ObserveAnalysis(telemetry.OutcomeFailed, time.Since(start).Seconds(), 0, 0)
	return err
}

func nonNil(xs []int) []int {
	if xs == nil {
		return []int{}
	}
	return xs
}
