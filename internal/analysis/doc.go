// Package analysis runs the registered checks against a document and keeps
// its persisted violation slots in step with the results.
//
// One pass is Runner -> Reconcile -> Gate, orchestrated by Manager:
//
//	candidates := runner.Run(ctx, snapshot)
//	rec := Reconcile(candidates, snapshot.Slots)
//	gate.Commit(ctx, snapshot, rec.Slots, rec.Changed())
//
// Reconcile only tombstones slots whose violation vanished and appends
// candidates that are new, so a second pass over unchanged content is a
// no-op. The dispatch package relies on this fixed point to stop the
// save -> event -> analyze loop.
package analysis
