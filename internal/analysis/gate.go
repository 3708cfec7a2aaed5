package analysis

import (
	"context"

	"github.com/roach88/docguard/internal/doc"
)

// AnalysisComment is the description stamped on every analysis save.
// Listeners can compare a save's comment against it to recognize their
// own writes.
const AnalysisComment = "Documentation analysis"

// DefaultSystemAuthor is the identity analysis saves are attributed to.
const DefaultSystemAuthor = "superadmin"

// Saver persists a document. Implemented by store.Store.
type Saver interface {
	Save(ctx context.Context, d doc.Document, comment, author string) (doc.Document, error)
}

// Gate commits reconciled slots only when something changed.
type Gate struct {
	saver  Saver
	author string
}

// NewGate creates a Gate saving through saver as author. An empty author
// selects DefaultSystemAuthor.
func NewGate(saver Saver, author string) *Gate {
	if author == "" {
		author = DefaultSystemAuthor
	}
	return &Gate{saver: saver, author: author}
}

// Author returns the identity analysis saves are attributed to.
func (g *Gate) Author() string { return g.author }

// Commit saves d with slots when changed is true. When changed is false it
// returns d untouched without calling the saver.
func (g *Gate) Commit(ctx context.Context, d doc.Document, slots []doc.Slot, changed bool) (doc.Document, bool, error) {
	if !changed {
		return d, false, nil
	}

	d.Slots = slots
	saved, err := g.saver.Save(ctx, d, AnalysisComment, g.author)
	if err != nil {
		return d, false, &PersistenceError{DocumentID: d.ID, Version: d.Version, Err: err}
	}
	return saved, true, nil
}
