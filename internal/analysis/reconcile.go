package analysis

import "github.com/roach88/docguard/internal/doc"

// Reconciliation is the result of diffing a candidate set against the
// persisted slots.
type Reconciliation struct {
	// Slots is the updated arena. Existing slots keep their position and
	// index; new slots are appended.
	Slots []doc.Slot

	// Added lists the indices of appended slots in candidate order.
	Added []int

	// Removed lists the indices of slots tombstoned by this pass.
	Removed []int
}

// Changed reports whether any slot was added or tombstoned.
func (r Reconciliation) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// Reconcile applies the minimal set of slot changes that makes the active
// slots match candidates.
//
// Both directions are membership tests on structural equality:
//   - an active slot whose violation is not among candidates is tombstoned
//   - a candidate not held by any originally active slot is appended at the
//     next unused index
//
// Multiplicity is ignored, so duplicate candidates collapse to one slot.
// current is not modified.
func Reconcile(candidates []doc.Violation, current []doc.Slot) Reconciliation {
	wanted := make(map[doc.Violation]struct{}, len(candidates))
	for _, v := range candidates {
		wanted[v] = struct{}{}
	}

	rec := Reconciliation{Slots: make([]doc.Slot, len(current), len(current)+len(candidates))}
	copy(rec.Slots, current)

	held := make(map[doc.Violation]struct{}, len(current))
	for i, s := range current {
		if s.Tombstone {
			continue
		}
		held[s.Violation] = struct{}{}
		if _, ok := wanted[s.Violation]; ok {
			continue
		}
		rec.Slots[i] = doc.Slot{Index: s.Index, Tombstone: true}
		rec.Removed = append(rec.Removed, s.Index)
	}

	next := doc.NextIndex(current)
	for _, v := range candidates {
		if _, ok := held[v]; ok {
			continue
		}
		// Mark as held so a repeated candidate is not appended twice.
		held[v] = struct{}{}
		rec.Slots = append(rec.Slots, doc.Slot{Index: next, Violation: v})
		rec.Added = append(rec.Added, next)
		next++
	}

	return rec
}
