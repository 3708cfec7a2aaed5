package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/docguard/internal/doc"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Trace        []StepTrace `json:"trace"`
}

// CanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// doc.MarshalCanonical only handles primitives, slices of any and string-keyed maps.
func (s *TraceSnapshot) CanonicalMap() map[string]any {
	steps := make([]any, len(s.Trace))
	for i, entry := range s.Trace {
		m := map[string]any{
			"step":    entry.Step,
			"action":  entry.Action,
			"changed": entry.Changed,
			"version": entry.Version,
		}
		if entry.Document != "" {
			m["document"] = entry.Document
		}
		if entry.Check != "" {
			m["check"] = entry.Check
		}
		if entry.Passes != 0 {
			m["passes"] = entry.Passes
		}
		if len(entry.Added) > 0 {
			m["added"] = ints(entry.Added)
		}
		if len(entry.Removed) > 0 {
			m["removed"] = ints(entry.Removed)
		}
		if entry.Error != "" {
			m["error"] = entry.Error
		}
		if entry.Action != ActionSetCheck {
			m["slots"] = slotList(entry.Slots)
		}
		steps[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         steps,
	}
}

func ints(xs []int) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func slotList(slots []doc.Slot) []any {
	out := make([]any, len(slots))
	for i, s := range slots {
		if s.Tombstone {
			out[i] = map[string]any{"index": s.Index, "tombstone": true}
			continue
		}
		out[i] = map[string]any{
			"index":    s.Index,
			"message":  s.Violation.Message,
			"context":  s.Violation.Context,
			"severity": s.Violation.Severity.Label(),
		}
	}
	return out
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	traceJSON, err := doc.MarshalCanonical(snapshot.CanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
