// Package check defines the pluggable documentation check capability and
// the named registry the analysis runner draws from.
//
// Checks must be pure functions of the document (plus whatever auxiliary
// documents they fetch). They must not depend on each other or on the
// order in which the runner calls them.
package check

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/docguard/internal/doc"
)

// Check inspects one document snapshot and reports its violations.
// A returned error aborts the whole analysis pass.
type Check interface {
	Name() string
	Check(ctx context.Context, d doc.Document) ([]doc.Violation, error)
}

// Func adapts a plain function into a Check.
type Func struct {
	CheckName string
	Fn        func(ctx context.Context, d doc.Document) ([]doc.Violation, error)
}

// Name implements Check.
func (f Func) Name() string { return f.CheckName }

// Check implements Check.
func (f Func) Check(ctx context.Context, d doc.Document) ([]doc.Violation, error) {
	return f.Fn(ctx, d)
}

// Registry maps check names to implementations.
//
// Thread-safety: all methods are safe for concurrent use. Iteration order
// of All is unspecified.
type Registry struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]Check)}
}

// Register adds a check. Names must be unique and non-empty.
func (r *Registry) Register(c Check) error {
	name := c.Name()
	if name == "" {
		return fmt.Errorf("register check: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.checks[name]; exists {
		return fmt.Errorf("register check %q: already registered", name)
	}
	r.checks[name] = c
	return nil
}

// MustRegister is like Register but panics on error.
// Use only at startup with built-in checks.
func (r *Registry) MustRegister(checks ...Check) {
	for _, c := range checks {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the check registered under name.
func (r *Registry) Lookup(name string) (Check, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.checks[name]
	return c, ok
}

// All returns a snapshot of the registered checks keyed by name.
func (r *Registry) All() map[string]Check {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Check, len(r.checks))
	for name, c := range r.checks {
		out[name] = c
	}
	return out
}

// Names returns the registered names, sorted for display.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered checks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.checks)
}

// Select returns a new registry holding only the named checks. The host
// decides which checks are active; an unknown name is an error.
func (r *Registry) Select(names []string) (*Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := NewRegistry()
	for _, name := range names {
		c, ok := r.checks[name]
		if !ok {
			return nil, fmt.Errorf("select checks: unknown check %q", name)
		}
		out.checks[name] = c
	}
	return out, nil
}
