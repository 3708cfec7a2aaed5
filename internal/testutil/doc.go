// Package testutil provides deterministic collaborators for tests: an
// in-memory document store with failure injection, stub checks and a
// sequential ID generator.
package testutil
