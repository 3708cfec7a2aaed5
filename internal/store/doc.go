// Package store provides SQLite-backed storage for documents and their
// violation slots. It is the storage collaborator of the analysis and
// dispatch packages.
//
// # Tables
//
//   - documents: current snapshot of each page, with a version counter
//   - violation_slots: the slot arena, keyed by (document_id, slot_index)
//   - revisions: one row per save, with author and comment
//
// # Invariants
//
// Save is a single transaction with an optimistic version check: the
// snapshot's Version must equal the persisted version (0 for a new
// document) or the save fails with doc.ErrConflict. Slots are upserted by
// index and never deleted, so an index keeps pointing at the same slot
// (or its tombstone) forever. A save that would drop slots fails with
// doc.ErrInvalidSlots.
//
// All reads order deterministically (slot_index ASC, id COLLATE BINARY).
//
// # Events
//
// Subscribers receive doc.EventCreated or doc.EventUpdated synchronously
// on the saving goroutine after the transaction commits.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Slots and revisions cascade with their document
package store
