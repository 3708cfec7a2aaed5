package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/roach88/docguard/internal/doc"
)

// StaticCheck returns the same violations for every document.
type StaticCheck struct {
	CheckName  string
	Violations []doc.Violation
}

// Name implements check.Check.
func (c StaticCheck) Name() string { return c.CheckName }

// Check implements check.Check.
func (c StaticCheck) Check(context.Context, doc.Document) ([]doc.Violation, error) {
	return append([]doc.Violation(nil), c.Violations...), nil
}

// FailingCheck always returns Err.
type FailingCheck struct {
	CheckName string
	Err       error
}

// Name implements check.Check.
func (c FailingCheck) Name() string { return c.CheckName }

// Check implements check.Check.
func (c FailingCheck) Check(context.Context, doc.Document) ([]doc.Violation, error) {
	return nil, c.Err
}

// ScriptedCheck returns violations chosen by the test, changeable between
// passes. It counts its invocations.
type ScriptedCheck struct {
	CheckName string

	mu         sync.Mutex
	violations []doc.Violation
	calls      atomic.Int64
}

// NewScriptedCheck creates a ScriptedCheck returning vs.
func NewScriptedCheck(name string, vs ...doc.Violation) *ScriptedCheck {
	return &ScriptedCheck{CheckName: name, violations: vs}
}

// Set replaces the violations returned from the next pass on.
func (c *ScriptedCheck) Set(vs ...doc.Violation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.violations = vs
}

// Calls returns how many times Check ran.
func (c *ScriptedCheck) Calls() int64 { return c.calls.Load() }

// Name implements check.Check.
func (c *ScriptedCheck) Name() string { return c.CheckName }

// Check implements check.Check.
func (c *ScriptedCheck) Check(context.Context, doc.Document) ([]doc.Violation, error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]doc.Violation(nil), c.violations...), nil
}
