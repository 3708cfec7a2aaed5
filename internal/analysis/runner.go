package analysis

import (
	"context"
	"sort"

	"github.com/roach88/docguard/internal/check"
	"github.com/roach88/docguard/internal/doc"
)

// Runner executes every check of a registry against one snapshot.
type Runner struct {
	registry *check.Registry
}

// NewRunner creates a Runner over the checks in registry. Checks
// registered later are picked up on the next Run.
func NewRunner(registry *check.Registry) *Runner {
	return &Runner{registry: registry}
}

// Run concatenates the violations of all checks into a candidate set.
//
// There is no fault isolation: the first failing check aborts the pass and
// the violations collected so far are discarded. Checks run in name order;
// callers must not rely on it.
func (r *Runner) Run(ctx context.Context, d doc.Document) ([]doc.Violation, error) {
	checks := r.registry.All()
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	candidates := []doc.Violation{}
	for _, name := range names {
		found, err := checks[name].Check(ctx, d)
		if err != nil {
			return nil, &CheckExecutionError{Check: name, DocumentID: d.ID, Err: err}
		}
		candidates = append(candidates, found...)
	}
	return candidates, nil
}
