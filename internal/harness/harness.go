package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/docguard/internal/analysis"
	"github.com/roach88/docguard/internal/check"
	"github.com/roach88/docguard/internal/check/rules"
	"github.com/roach88/docguard/internal/doc"
	"github.com/roach88/docguard/internal/store"
	"github.com/roach88/docguard/internal/testutil"
)

// ScenarioAuthor is the author recorded on saves made by scenario steps.
const ScenarioAuthor = "scenario"

// MaxSettlePasses bounds a settle step.
const MaxSettlePasses = 10

// Harness is the scenario execution context.
// It owns a fresh store and the analysis manager wired to it.
type Harness struct {
	store    *store.Store
	manager  *analysis.Manager
	scripted map[string]*testutil.ScriptedCheck
	touched  map[string]bool
	order    []string
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with sequential
// revision IDs. Expect mismatches and step failures are recorded in the
// result; the returned error is reserved for setup failures.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDs("rev")))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &Harness{
		store:    st,
		scripted: make(map[string]*testutil.ScriptedCheck),
		touched:  make(map[string]bool),
		logger:   logger,
	}

	registry, err := h.buildRegistry(scenario)
	if err != nil {
		return nil, err
	}
	h.manager = analysis.NewManager(st, registry, analysis.WithLogger(logger))

	ctx := context.Background()
	for i, d := range scenario.Documents {
		if err := h.seed(ctx, d); err != nil {
			return nil, fmt.Errorf("documents[%d]: %w", i, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		entry := h.execute(ctx, i, step)
		result.Trace = append(result.Trace, entry)
		if entry.Error != "" && step.Expect == nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, entry.Action, entry.Error))
		}
		if step.Expect != nil {
			for _, msg := range compareExpect(step.Expect, entry) {
				result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, entry.Action, msg))
			}
		}
	}

	for _, id := range h.order {
		d, err := st.Fetch(ctx, id)
		if errors.Is(err, doc.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read final state: %w", err)
		}
		result.Final[id] = d
	}

	return result, nil
}

// buildRegistry registers scripted checks and the requested built-ins.
func (h *Harness) buildRegistry(scenario *Scenario) (*check.Registry, error) {
	builtins := check.NewRegistry()
	if err := rules.Register(builtins, h.store, h.logger); err != nil {
		return nil, fmt.Errorf("register built-in checks: %w", err)
	}

	registry := check.NewRegistry()
	for _, name := range scenario.Builtin {
		c, ok := builtins.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown built-in check %q", name)
		}
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	for _, def := range scenario.Checks {
		sc := testutil.NewScriptedCheck(def.Name, violations(def.Violations)...)
		if err := registry.Register(sc); err != nil {
			return nil, err
		}
		h.scripted[def.Name] = sc
	}
	return registry, nil
}

func (h *Harness) seed(ctx context.Context, def DocumentDef) error {
	d := doc.Document{
		ID:      def.ID,
		Title:   def.Title,
		Content: def.Content,
		Slots:   slots(def.Slots),
	}
	if def.Target != "" {
		d.Documentation = &doc.DocumentationInfo{Target: def.Target}
	}
	if _, err := h.store.Save(ctx, d, "Seeded", ScenarioAuthor); err != nil {
		return err
	}
	h.track(def.ID)
	return nil
}

func (h *Harness) track(id string) {
	if !h.touched[id] {
		h.touched[id] = true
		h.order = append(h.order, id)
	}
}

func (h *Harness) execute(ctx context.Context, i int, step Step) StepTrace {
	entry := StepTrace{Step: i, Action: step.Action()}

	switch entry.Action {
	case ActionSave:
		entry.Document = step.Save.ID
		saved, err := h.save(ctx, *step.Save)
		if err != nil {
			entry.Error = err.Error()
			return entry
		}
		entry.Changed = true
		entry.Version = saved.Version
		entry.Slots = saved.Slots

	case ActionAnalyze:
		entry.Document = step.Analyze
		d, err := h.store.Fetch(ctx, step.Analyze)
		if err != nil {
			entry.Error = err.Error()
			return entry
		}
		report, err := h.manager.Analyze(ctx, d)
		if err != nil {
			entry.Error = err.Error()
			entry.Version = d.Version
			entry.Slots = d.Slots
			return entry
		}
		entry.Changed = report.Changed
		entry.Version = report.Version
		entry.Passes = 1
		entry.Added = report.Added
		entry.Removed = report.Removed
		entry.Slots = report.Document.Slots

	case ActionSettle:
		entry.Document = step.Settle
		h.settle(ctx, step.Settle, &entry)

	case ActionSetCheck:
		entry.Check = step.SetCheck.Name
		h.scripted[step.SetCheck.Name].Set(violations(step.SetCheck.Violations)...)
	}

	return entry
}

// save overwrites content and documentation metadata while keeping the
// stored slots, the way an editor would.
func (h *Harness) save(ctx context.Context, def DocumentDef) (doc.Document, error) {
	d, err := h.store.Fetch(ctx, def.ID)
	if errors.Is(err, doc.ErrNotFound) {
		d = doc.Document{ID: def.ID}
	} else if err != nil {
		return doc.Document{}, err
	}

	d.Content = def.Content
	if def.Title != "" {
		d.Title = def.Title
	}
	if def.Target != "" {
		d.Documentation = &doc.DocumentationInfo{Target: def.Target}
	}

	saved, err := h.store.Save(ctx, d, "Edited", ScenarioAuthor)
	if err != nil {
		return doc.Document{}, err
	}
	h.track(def.ID)
	return saved, nil
}

// settle analyzes id until a pass reports no change.
func (h *Harness) settle(ctx context.Context, id string, entry *StepTrace) {
	for pass := 1; pass <= MaxSettlePasses; pass++ {
		d, err := h.store.Fetch(ctx, id)
		if err != nil {
			entry.Error = err.Error()
			return
		}
		report, err := h.manager.Analyze(ctx, d)
		if err != nil {
			entry.Error = err.Error()
			return
		}
		entry.Passes = pass
		entry.Version = report.Version
		entry.Slots = report.Document.Slots
		if report.Changed {
			entry.Changed = true
			continue
		}
		return
	}
	entry.Error = fmt.Sprintf("did not settle within %d passes", MaxSettlePasses)
}

func compareExpect(exp *Expect, entry StepTrace) []string {
	var msgs []string
	if exp.Changed != nil && *exp.Changed != entry.Changed {
		msgs = append(msgs, fmt.Sprintf("changed: expected %v, got %v", *exp.Changed, entry.Changed))
	}
	if exp.Version != nil && *exp.Version != entry.Version {
		msgs = append(msgs, fmt.Sprintf("version: expected %d, got %d", *exp.Version, entry.Version))
	}
	if exp.Passes != nil && *exp.Passes != entry.Passes {
		msgs = append(msgs, fmt.Sprintf("passes: expected %d, got %d", *exp.Passes, entry.Passes))
	}
	active, tombstones := countSlots(entry.Slots)
	if exp.Active != nil && *exp.Active != active {
		msgs = append(msgs, fmt.Sprintf("active: expected %d, got %d", *exp.Active, active))
	}
	if exp.Tombstones != nil && *exp.Tombstones != tombstones {
		msgs = append(msgs, fmt.Sprintf("tombstones: expected %d, got %d", *exp.Tombstones, tombstones))
	}
	if entry.Error != "" {
		msgs = append(msgs, "unexpected error: "+entry.Error)
	}
	return msgs
}

func countSlots(slots []doc.Slot) (active, tombstones int) {
	for _, s := range slots {
		if s.Tombstone {
			tombstones++
		} else {
			active++
		}
	}
	return active, tombstones
}
