package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/docguard/internal/doc"
)

// Fetch returns the current snapshot of id with its slots ordered by
// index. Returns doc.ErrNotFound if the document does not exist.
func (s *Store) Fetch(ctx context.Context, id string) (doc.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, version, title, content, content_hash, author, comment, doc_target
		FROM documents
		WHERE id = ?
	`, id)

	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return doc.Document{}, fmt.Errorf("fetch %s: %w", id, doc.ErrNotFound)
	}
	if err != nil {
		return doc.Document{}, fmt.Errorf("fetch %s: %w", id, err)
	}

	d.Slots, err = s.readSlots(ctx, id)
	if err != nil {
		return doc.Document{}, err
	}
	return d, nil
}

// Clone returns a deep copy of d so callers can mutate its slots.
func (s *Store) Clone(d doc.Document) doc.Document {
	return d.Clone()
}

// List returns every document without slots, ordered by id.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) List(ctx context.Context) ([]doc.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, title, content, content_hash, author, comment, doc_target
		FROM documents
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []doc.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Revisions returns the save history of id, oldest first.
func (s *Store) Revisions(ctx context.Context, id string) ([]doc.Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, version, author, comment, content_hash
		FROM revisions
		WHERE document_id = ?
		ORDER BY version ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	revs := []doc.Revision{}
	for rows.Next() {
		var r doc.Revision
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Version, &r.Author, &r.Comment, &r.ContentHash); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revs, nil
}

func (s *Store) readSlots(ctx context.Context, id string) ([]doc.Slot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slot_index, message, context, severity, tombstone
		FROM violation_slots
		WHERE document_id = ?
		ORDER BY slot_index ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	slots := []doc.Slot{}
	for rows.Next() {
		var (
			slot  doc.Slot
			label string
		)
		if err := rows.Scan(&slot.Index, &slot.Violation.Message, &slot.Violation.Context, &label, &slot.Tombstone); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		if !slot.Tombstone {
			sev, err := doc.ParseSeverity(label)
			if err != nil {
				return nil, fmt.Errorf("slot %d of %s: %w", slot.Index, id, err)
			}
			slot.Violation.Severity = sev
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (doc.Document, error) {
	var (
		d      doc.Document
		target sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Version, &d.Title, &d.Content, &d.ContentHash, &d.Author, &d.Comment, &target); err != nil {
		return doc.Document{}, err
	}
	if target.Valid {
		d.Documentation = &doc.DocumentationInfo{Target: target.String}
	}
	return d, nil
}
