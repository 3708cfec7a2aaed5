// Package harness runs analysis scenarios against a fresh in-memory store
// and records a deterministic trace for golden comparison.
//
// # Scenario Format
//
//	name: replaced_violation
//	description: "An old violation is tombstoned and the new one appended"
//	builtin: [imageMacro]          # built-in checks to enable
//	checks:                        # scripted checks with fixed output
//	  - name: scripted
//	    violations:
//	      - {message: new, context: newctx, severity: Error}
//	documents:
//	  - id: Doc.A
//	    target: user               # documentation target; omit for plain pages
//	    content: "..."
//	    slots:
//	      - {message: old, context: oldctx, severity: Error}
//	      - {tombstone: true}
//	steps:
//	  - analyze: Doc.A
//	    expect: {changed: true, version: 2, active: 1, tombstones: 1}
//	  - set_check:                 # replace a scripted check's output
//	      name: scripted
//	      violations: []
//	  - save: {id: Doc.A, content: "edited"}
//	  - settle: Doc.A              # analyze until nothing changes
//
// # Deterministic Testing
//
// Each run uses an in-memory SQLite database with sequential revision IDs
// and runs checks in name order, so the same scenario always yields the
// same trace.
package harness
