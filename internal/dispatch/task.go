package dispatch

import "fmt"

// KindDocumentationAnalysis is the task kind for violation analysis.
const KindDocumentationAnalysis = "documentation-analysis"

// Task is a unit of deferred work for one document.
type Task struct {
	DocumentID string
	Version    int64
	Kind       string
}

// Key identifies the coalescing slot of a task.
type Key struct {
	DocumentID string
	Kind       string
}

// Key returns the coalescing key.
func (t Task) Key() Key {
	return Key{DocumentID: t.DocumentID, Kind: t.Kind}
}

// String renders the task for logs.
func (t Task) String() string {
	return fmt.Sprintf("%s@%d(%s)", t.DocumentID, t.Version, t.Kind)
}
