package harness

import "github.com/roach88/docguard/internal/doc"

// StepTrace records what one step did.
type StepTrace struct {
	Step     int    `json:"step"`
	Action   string `json:"action"`
	Document string `json:"document,omitempty"`
	Check    string `json:"check,omitempty"`

	Changed bool  `json:"changed"`
	Version int64 `json:"version"`
	Passes  int   `json:"passes,omitempty"`
	Added   []int `json:"added,omitempty"`
	Removed []int `json:"removed,omitempty"`

	// Error holds the failure message when the step failed.
	Error string `json:"error,omitempty"`

	// Slots is the document's violation arena after the step.
	Slots []doc.Slot `json:"slots,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses match.
	Pass bool `json:"pass"`

	// Trace contains one entry per step, in order.
	Trace []StepTrace `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final maps each document ID to its state after the last step.
	Final map[string]doc.Document `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
		Final:  make(map[string]doc.Document),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
