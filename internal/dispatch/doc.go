// Package dispatch decouples "a document changed" from "analysis ran".
//
// The Listener turns storage change events into Tasks. The Dispatcher keeps
// at most one pending Task per (document, kind) key, runs a worker pool,
// and never executes two Tasks with the same key at once. Workers re-fetch
// the current document, so the version carried by a Task is only a
// staleness hint.
//
// Analysis saves fire change events too. The loop stops because the next
// pass over unchanged content reconciles to no change and saves nothing.
//
// Thread-safety model:
//   - TriggerAnalysis, Idle, Pending, Stop: safe from any goroutine
//   - Run: call once; it blocks until Stop or context cancellation
package dispatch
