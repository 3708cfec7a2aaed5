// Package doc provides the domain types shared by every docguard package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import doc; doc imports nothing internal.
//
// Key design constraints:
//   - Violations are values; equality is structural (message, context, severity)
//   - Slots form a dense arena: Slots[i].Index == i, tombstones keep their index
//   - Slot indices are never reused, so the arena only ever grows
//   - Document.Version is the persisted revision counter (0 = never saved)
package doc
