package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/docguard/internal/doc"
)

// DefaultAuthor is recorded on imported revisions when none is configured.
const DefaultAuthor = "importer"

// maxImportAttempts bounds how often one file is re-applied after losing
// a version race with another writer.
const maxImportAttempts = 3

// Storage is the part of the store the importer writes through.
type Storage interface {
	Fetch(ctx context.Context, id string) (doc.Document, error)
	Save(ctx context.Context, d doc.Document, comment, author string) (doc.Document, error)
	Delete(ctx context.Context, id string) error
}

// Outcome says what an import did to the store.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeDeleted   Outcome = "deleted"
)

// Result reports one imported file.
type Result struct {
	Path       string  `json:"path"`
	DocumentID string  `json:"document"`
	Outcome    Outcome `json:"outcome"`
	Version    int64   `json:"version"`
}

// Importer loads page files under a root directory into storage.
type Importer struct {
	storage    Storage
	root       string
	extensions []string
	author     string
	logger     *slog.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithExtensions restricts imports to files with these extensions.
func WithExtensions(exts ...string) ImporterOption {
	return func(im *Importer) {
		im.extensions = exts
	}
}

// WithAuthor sets the author recorded on imported revisions.
func WithAuthor(author string) ImporterOption {
	return func(im *Importer) {
		if author != "" {
			im.author = author
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ImporterOption {
	return func(im *Importer) {
		im.logger = logger
	}
}

// NewImporter creates an importer for pages under root.
func NewImporter(storage Storage, root string, opts ...ImporterOption) *Importer {
	im := &Importer{
		storage:    storage,
		root:       root,
		extensions: []string{".xwiki", ".md"},
		author:     DefaultAuthor,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Root returns the imported directory.
func (im *Importer) Root() string { return im.root }

// Accepts reports whether path has an importable extension and is not hidden.
func (im *Importer) Accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ext := filepath.Ext(path)
	for _, e := range im.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ImportDir imports every accepted file under the root in path order.
func (im *Importer) ImportDir(ctx context.Context) ([]Result, error) {
	var paths []string
	err := filepath.WalkDir(im.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != im.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if im.Accepts(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", im.root, err)
	}
	sort.Strings(paths)

	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		res, err := im.ImportFile(ctx, path)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ImportFile saves the page at path. Files whose content matches the
// stored document are skipped. When another writer saves the document
// between the fetch and the save, the page is re-applied to the newer
// snapshot.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	rel, err := filepath.Rel(im.root, path)
	if err != nil {
		return Result{}, fmt.Errorf("import %s: %w", path, err)
	}
	res := Result{Path: filepath.ToSlash(rel), DocumentID: DocumentID(rel)}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("import %s: %w", path, err)
	}
	page, err := ParsePage(data)
	if err != nil {
		return Result{}, fmt.Errorf("import %s: %w", path, err)
	}

	for attempt := 1; ; attempt++ {
		res, err = im.save(ctx, res, page)
		if err == nil {
			break
		}
		if !errors.Is(err, doc.ErrConflict) || attempt == maxImportAttempts {
			return Result{}, fmt.Errorf("import %s: %w", path, err)
		}
		im.logger.Debug("page changed during import, retrying",
			"path", res.Path, "document", res.DocumentID, "attempt", attempt)
	}
	if res.Outcome == OutcomeUnchanged {
		return res, nil
	}

	im.logger.Info("page imported",
		"path", res.Path,
		"document", res.DocumentID,
		"outcome", res.Outcome,
		"version", res.Version,
	)
	return res, nil
}

// save applies page to the current snapshot and saves it. A concurrent
// save between the fetch and the save surfaces as doc.ErrConflict.
func (im *Importer) save(ctx context.Context, res Result, page Page) (Result, error) {
	existing, err := im.storage.Fetch(ctx, res.DocumentID)
	switch {
	case errors.Is(err, doc.ErrNotFound):
		existing = doc.Document{ID: res.DocumentID}
		res.Outcome = OutcomeCreated
	case err != nil:
		return res, err
	default:
		res.Outcome = OutcomeUpdated
	}

	next := page.Apply(existing.Clone())
	if res.Outcome == OutcomeUpdated {
		hash, err := doc.ContentHash(next)
		if err != nil {
			return res, err
		}
		if hash == existing.ContentHash {
			res.Outcome = OutcomeUnchanged
			res.Version = existing.Version
			return res, nil
		}
	}

	saved, err := im.storage.Save(ctx, next, "Imported from "+res.Path, im.author)
	if err != nil {
		return res, err
	}
	res.Version = saved.Version
	return res, nil
}

// Remove deletes the document backing a removed file. A document that is
// already gone is not an error.
func (im *Importer) Remove(ctx context.Context, path string) (Result, error) {
	rel, err := filepath.Rel(im.root, path)
	if err != nil {
		return Result{}, fmt.Errorf("remove %s: %w", path, err)
	}
	res := Result{Path: filepath.ToSlash(rel), DocumentID: DocumentID(rel), Outcome: OutcomeDeleted}

	if err := im.storage.Delete(ctx, res.DocumentID); err != nil && !errors.Is(err, doc.ErrNotFound) {
		return Result{}, fmt.Errorf("remove %s: %w", path, err)
	}
	im.logger.Info("page removed", "path", res.Path, "document", res.DocumentID)
	return res, nil
}

// Apply imports or removes each changed path. Errors are logged and the
// remaining paths are still processed.
func (im *Importer) Apply(ctx context.Context, changes []Change) {
	for _, c := range changes {
		if !im.Accepts(c.Path) {
			continue
		}

		var err error
		if _, statErr := os.Stat(c.Path); errors.Is(statErr, fs.ErrNotExist) {
			_, err = im.Remove(ctx, c.Path)
		} else {
			_, err = im.ImportFile(ctx, c.Path)
		}
		if err != nil {
			im.logger.Error("apply file change failed", "path", c.Path, "op", c.Op, "error", err)
		}
	}
}
