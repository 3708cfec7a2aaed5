package dispatch

import (
	"errors"
	"log/slog"

	"github.com/roach88/docguard/internal/analysis"
	"github.com/roach88/docguard/internal/doc"
)

// Trigger queues analysis of a document. Implemented by *Dispatcher.
type Trigger interface {
	TriggerAnalysis(id string, version int64) (coalesced bool, err error)
}

// Listener turns change events on documentation pages into analysis tasks.
// It does no analysis itself.
type Listener struct {
	trigger       Trigger
	skipSelfSaves bool
	logger        *slog.Logger
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithSkipSelfSaves ignores events from saves stamped with the analysis
// comment. Loops terminate without it; it only saves a redundant pass.
func WithSkipSelfSaves(skip bool) ListenerOption {
	return func(l *Listener) {
		l.skipSelfSaves = skip
	}
}

// WithListenerLogger sets the logger. Defaults to slog.Default().
func WithListenerLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a Listener feeding trigger.
func NewListener(trigger Trigger, opts ...ListenerOption) *Listener {
	l := &Listener{trigger: trigger, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OnEvent handles one created or updated event. Returns immediately.
func (l *Listener) OnEvent(e doc.Event) {
	d := e.Document
	if !d.IsDocumentation() {
		return
	}
	if l.skipSelfSaves && d.Comment == analysis.AnalysisComment {
		l.logger.Debug("skipping analysis save", "document", d.ID, "version", d.Version)
		return
	}

	if _, err := l.trigger.TriggerAnalysis(d.ID, d.Version); err != nil {
		if errors.Is(err, ErrStopped) {
			l.logger.Debug("dispatcher stopped, event ignored", "document", d.ID, "event", e.Type)
			return
		}
		l.logger.Error("queue analysis failed", "document", d.ID, "event", e.Type, "error", err)
	}
}

// Func adapts the listener for store subscription.
func (l *Listener) Func() doc.Listener {
	return l.OnEvent
}
