package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/docguard/internal/doc"
)

// SavedCall records one successful Save.
type SavedCall struct {
	DocumentID string
	Version    int64
	Comment    string
	Author     string
}

// MemoryStorage is an in-memory storage collaborator with the same
// semantics as store.Store: optimistic version checks, slot validation,
// revisions and synchronous change events after each save.
//
// Thread-safety: all methods are safe for concurrent use. Listeners run
// on the saving goroutine after the lock is released.
type MemoryStorage struct {
	mu        sync.Mutex
	docs      map[string]doc.Document
	revisions map[string][]doc.Revision
	saves     []SavedCall
	listeners []doc.Listener
	saveErr   error
	fetchErr  error
	ids       *SequentialIDs
}

// NewMemoryStorage creates an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		docs:      make(map[string]doc.Document),
		revisions: make(map[string][]doc.Revision),
		ids:       NewSequentialIDs("rev"),
	}
}

// FailSaves makes every following Save return err. Pass nil to recover.
func (m *MemoryStorage) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// FailFetches makes every following Fetch return err. Pass nil to recover.
func (m *MemoryStorage) FailFetches(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
}

// Subscribe registers a change listener.
func (m *MemoryStorage) Subscribe(fn doc.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Fetch returns a copy of the current snapshot.
func (m *MemoryStorage) Fetch(_ context.Context, id string) (doc.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fetchErr != nil {
		return doc.Document{}, m.fetchErr
	}
	d, ok := m.docs[id]
	if !ok {
		return doc.Document{}, fmt.Errorf("fetch %s: %w", id, doc.ErrNotFound)
	}
	return d.Clone(), nil
}

// Clone returns a deep copy of d.
func (m *MemoryStorage) Clone(d doc.Document) doc.Document {
	return d.Clone()
}

// Save stores d as the next version. d.Version must equal the stored
// version (0 for a new document).
func (m *MemoryStorage) Save(_ context.Context, d doc.Document, comment, author string) (doc.Document, error) {
	m.mu.Lock()

	if m.saveErr != nil {
		err := m.saveErr
		m.mu.Unlock()
		return doc.Document{}, err
	}

	current, exists := m.docs[d.ID]
	if current.Version != d.Version {
		m.mu.Unlock()
		return doc.Document{}, fmt.Errorf("save %s: have version %d, got %d: %w",
			d.ID, current.Version, d.Version, doc.ErrConflict)
	}
	if err := doc.ValidateSlots(d.Slots); err != nil {
		m.mu.Unlock()
		return doc.Document{}, fmt.Errorf("save %s: %w", d.ID, err)
	}
	if len(d.Slots) < len(current.Slots) {
		m.mu.Unlock()
		return doc.Document{}, fmt.Errorf("save %s: %w: %d slots would shrink to %d",
			d.ID, doc.ErrInvalidSlots, len(current.Slots), len(d.Slots))
	}

	hash, err := doc.ContentHash(d)
	if err != nil {
		m.mu.Unlock()
		return doc.Document{}, err
	}

	stored := d.Clone()
	stored.Version = current.Version + 1
	stored.Author = author
	stored.Comment = comment
	stored.ContentHash = hash
	if stored.Slots == nil {
		stored.Slots = []doc.Slot{}
	}
	m.docs[d.ID] = stored
	m.revisions[d.ID] = append(m.revisions[d.ID], doc.Revision{
		ID:          m.ids.Generate(),
		DocumentID:  d.ID,
		Version:     stored.Version,
		Author:      author,
		Comment:     comment,
		ContentHash: hash,
	})
	m.saves = append(m.saves, SavedCall{
		DocumentID: d.ID,
		Version:    stored.Version,
		Comment:    comment,
		Author:     author,
	})

	listeners := append([]doc.Listener(nil), m.listeners...)
	m.mu.Unlock()

	evType := doc.EventUpdated
	if !exists {
		evType = doc.EventCreated
	}
	for _, fn := range listeners {
		fn(doc.Event{Type: evType, Document: stored.Clone()})
	}
	return stored.Clone(), nil
}

// Delete removes a document and its revisions without firing events.
func (m *MemoryStorage) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, doc.ErrNotFound)
	}
	delete(m.docs, id)
	delete(m.revisions, id)
	return nil
}

// Put seeds a document without firing events. It overwrites any stored
// version and returns the stored snapshot.
func (m *MemoryStorage) Put(d doc.Document) doc.Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := d.Clone()
	if stored.Version == 0 {
		stored.Version = 1
	}
	if stored.Slots == nil {
		stored.Slots = []doc.Slot{}
	}
	m.docs[d.ID] = stored
	return stored.Clone()
}

// Saves returns every successful Save in order.
func (m *MemoryStorage) Saves() []SavedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SavedCall(nil), m.saves...)
}

// SaveCount returns the number of successful saves.
func (m *MemoryStorage) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

// Revisions returns the revisions of id, oldest first.
func (m *MemoryStorage) Revisions(id string) []doc.Revision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]doc.Revision{}, m.revisions[id]...)
}

// IDs returns the stored document IDs, sorted.
func (m *MemoryStorage) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
