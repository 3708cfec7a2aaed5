package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/docguard/internal/doc"
)

// Save persists d as its next version, attributed to author with comment.
//
// d.Version must equal the stored version (0 for a new document),
// otherwise the save fails with doc.ErrConflict. Slots must satisfy
// doc.ValidateSlots and may not be fewer than already persisted. The
// returned snapshot carries the new version and content hash.
func (s *Store) Save(ctx context.Context, d doc.Document, comment, author string) (doc.Document, error) {
	if d.ID == "" {
		return doc.Document{}, fmt.Errorf("save document: empty id")
	}
	if err := doc.ValidateSlots(d.Slots); err != nil {
		return doc.Document{}, fmt.Errorf("save %s: %w", d.ID, err)
	}
	hash, err := doc.ContentHash(d)
	if err != nil {
		return doc.Document{}, fmt.Errorf("save %s: %w", d.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return doc.Document{}, fmt.Errorf("save %s: begin: %w", d.ID, err)
	}
	defer tx.Rollback()

	var current int64
	created := false
	err = tx.QueryRowContext(ctx, `SELECT version FROM documents WHERE id = ?`, d.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		created = true
	} else if err != nil {
		return doc.Document{}, fmt.Errorf("save %s: read version: %w", d.ID, err)
	}
	if current != d.Version {
		return doc.Document{}, fmt.Errorf("save %s: stored version %d, snapshot version %d: %w",
			d.ID, current, d.Version, doc.ErrConflict)
	}

	var persisted int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM violation_slots WHERE document_id = ?`, d.ID,
	).Scan(&persisted); err != nil {
		return doc.Document{}, fmt.Errorf("save %s: count slots: %w", d.ID, err)
	}
	if len(d.Slots) < persisted {
		return doc.Document{}, fmt.Errorf("save %s: %w: %d persisted slots, %d given",
			d.ID, doc.ErrInvalidSlots, persisted, len(d.Slots))
	}

	next := current + 1
	var target sql.NullString
	if d.Documentation != nil {
		target = sql.NullString{String: d.Documentation.Target, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, version, title, content, content_hash, author, comment, doc_target)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			title = excluded.title,
			content = excluded.content,
			content_hash = excluded.content_hash,
			author = excluded.author,
			comment = excluded.comment,
			doc_target = excluded.doc_target
	`, d.ID, next, d.Title, d.Content, hash, author, comment, target)
	if err != nil {
		return doc.Document{}, fmt.Errorf("save %s: write document: %w", d.ID, err)
	}

	if err := writeSlots(ctx, tx, d.ID, d.Slots); err != nil {
		return doc.Document{}, fmt.Errorf("save %s: %w", d.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO revisions (id, document_id, version, author, comment, content_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ids.Generate(), d.ID, next, author, comment, hash)
	if err != nil {
		return doc.Document{}, fmt.Errorf("save %s: write revision: %w", d.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return doc.Document{}, fmt.Errorf("save %s: commit: %w", d.ID, err)
	}

	saved := d.Clone()
	saved.Version = next
	saved.ContentHash = hash
	saved.Author = author
	saved.Comment = comment
	if saved.Slots == nil {
		saved.Slots = []doc.Slot{}
	}

	evType := doc.EventUpdated
	if created {
		evType = doc.EventCreated
	}
	s.notify(doc.Event{Type: evType, Document: saved})

	return saved, nil
}

// writeSlots upserts every slot by index. Slots are never deleted.
func writeSlots(ctx context.Context, tx *sql.Tx, documentID string, slots []doc.Slot) error {
	if len(slots) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO violation_slots (document_id, slot_index, message, context, severity, tombstone)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, slot_index) DO UPDATE SET
			message = excluded.message,
			context = excluded.context,
			severity = excluded.severity,
			tombstone = excluded.tombstone
	`)
	if err != nil {
		return fmt.Errorf("prepare slot upsert: %w", err)
	}
	defer stmt.Close()

	for _, slot := range slots {
		v := slot.Violation
		label := v.Severity.Label()
		if slot.Tombstone {
			v, label = doc.Violation{}, ""
		}
		if _, err := stmt.ExecContext(ctx, documentID, slot.Index, v.Message, v.Context, label, slot.Tombstone); err != nil {
			return fmt.Errorf("write slot %d: %w", slot.Index, err)
		}
	}
	return nil
}

// Delete removes a document with its slots and revisions. No event is
// emitted; pending analysis tasks find the document gone and drop.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, doc.ErrNotFound)
	}
	return nil
}
