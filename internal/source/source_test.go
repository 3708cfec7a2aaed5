package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docguard/internal/doc"
	"github.com/roach88/docguard/internal/testutil"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const installPage = `---
title: Install
documentation:
  target: user
---
[[image:setup.png]]
`

func TestParsePage(t *testing.T) {
	p, err := ParsePage([]byte(installPage))
	require.NoError(t, err)
	assert.Equal(t, "Install", p.Title)
	require.NotNil(t, p.Documentation)
	assert.Equal(t, "user", p.Documentation.Target)
	assert.Equal(t, "[[image:setup.png]]\n", p.Body)
}

func TestParsePage_NoFrontMatter(t *testing.T) {
	p, err := ParsePage([]byte("plain body\n---\n"))
	require.NoError(t, err)
	assert.Equal(t, "plain body\n---\n", p.Body)
	assert.Nil(t, p.Documentation)
}

func TestParsePage_Errors(t *testing.T) {
	_, err := ParsePage([]byte("---\ntitle: x\n"))
	assert.ErrorContains(t, err, "missing closing")

	_, err = ParsePage([]byte("---\ncolour: red\n---\n"))
	assert.Error(t, err, "unknown front matter keys are rejected")
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "A.B.Page", DocumentID("A/B/Page.xwiki"))
	assert.Equal(t, "Page", DocumentID("Page.md"))
	assert.Equal(t, "Documentation.Data.NavigationForUsers", DocumentID("Documentation/Data/NavigationForUsers.xwiki"))
}

func TestImporter_ImportDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Documentation/User/Install.xwiki", installPage)
	writeFile(t, root, "Main/WebHome.md", "welcome")
	writeFile(t, root, "notes.txt", "ignored")
	writeFile(t, root, ".hidden/Secret.xwiki", "ignored")

	storage := testutil.NewMemoryStorage()
	im := NewImporter(storage, root, WithAuthor("bob"))

	results, err := im.ImportDir(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{
		Path:       "Documentation/User/Install.xwiki",
		DocumentID: "Documentation.User.Install",
		Outcome:    OutcomeCreated,
		Version:    1,
	}, results[0])
	assert.Equal(t, "Main.WebHome", results[1].DocumentID)

	saves := storage.Saves()
	require.Len(t, saves, 2)
	assert.Equal(t, "Imported from Documentation/User/Install.xwiki", saves[0].Comment)
	assert.Equal(t, "bob", saves[0].Author)

	d, err := storage.Fetch(context.Background(), "Documentation.User.Install")
	require.NoError(t, err)
	assert.True(t, d.IsDocumentation())
	assert.Equal(t, "[[image:setup.png]]\n", d.Content)
}

func TestImporter_SkipsUnchangedAndKeepsSlots(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "Doc/Page.xwiki", installPage)
	storage := testutil.NewMemoryStorage()
	im := NewImporter(storage, root)
	ctx := context.Background()

	_, err := im.ImportFile(ctx, path)
	require.NoError(t, err)

	// Analysis adds a slot between imports.
	d, err := storage.Fetch(ctx, "Doc.Page")
	require.NoError(t, err)
	d.Slots = []doc.Slot{{Index: 0, Violation: doc.NewViolation("m", "", doc.SeverityError)}}
	_, err = storage.Save(ctx, d, "Documentation analysis", "superadmin")
	require.NoError(t, err)

	res, err := im.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
	assert.Equal(t, 2, storage.SaveCount())

	writeFile(t, root, "Doc/Page.xwiki", installPage+"more\n")
	res, err = im.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, int64(3), res.Version)

	d, err = storage.Fetch(ctx, "Doc.Page")
	require.NoError(t, err)
	assert.Len(t, d.Slots, 1, "content updates keep the slot arena")
}

func TestImporter_ApplyHandlesRemovals(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "Doc/Page.xwiki", installPage)
	storage := testutil.NewMemoryStorage()
	im := NewImporter(storage, root)
	ctx := context.Background()

	im.Apply(ctx, []Change{{Path: path, Op: OpWrite}})
	assert.Equal(t, []string{"Doc.Page"}, storage.IDs())

	require.NoError(t, os.Remove(path))
	im.Apply(ctx, []Change{{Path: path, Op: OpRemove}})
	assert.Empty(t, storage.IDs())

	// Removing again is harmless.
	_, err := im.Remove(ctx, path)
	assert.NoError(t, err)
}

// racingStorage commits a competing analysis save right after each of the
// next races fetches, so the importer's snapshot is already stale.
type racingStorage struct {
	*testutil.MemoryStorage
	races int
}

func (r *racingStorage) Fetch(ctx context.Context, id string) (doc.Document, error) {
	d, err := r.MemoryStorage.Fetch(ctx, id)
	if err != nil || r.races == 0 {
		return d, err
	}
	r.races--

	analyzed := d.Clone()
	analyzed.Slots = append(analyzed.Slots, doc.Slot{
		Index:     doc.NextIndex(analyzed.Slots),
		Violation: doc.NewViolation(fmt.Sprintf("found %d", r.races), "", doc.SeverityWarning),
	})
	if _, err := r.MemoryStorage.Save(ctx, analyzed, "Documentation analysis", "superadmin"); err != nil {
		return doc.Document{}, err
	}
	return d, nil
}

func TestImporter_RetriesAfterConcurrentSave(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	path := writeFile(t, root, "Docs/Install.xwiki", installPage)

	storage := &racingStorage{MemoryStorage: testutil.NewMemoryStorage()}
	im := NewImporter(storage, root)
	_, err := im.ImportFile(ctx, path)
	require.NoError(t, err)

	writeFile(t, root, "Docs/Install.xwiki", "edited by hand\n")
	storage.races = 1

	res, err := im.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, int64(3), res.Version)

	got, err := storage.MemoryStorage.Fetch(ctx, "Docs.Install")
	require.NoError(t, err)
	assert.Equal(t, "edited by hand\n", got.Content)
	assert.Len(t, got.Slots, 1, "the analysis save's slot survives the re-applied import")
	assert.Equal(t, "Imported from Docs/Install.xwiki", got.Comment)
}

func TestImporter_GivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	path := writeFile(t, root, "Docs/Install.xwiki", installPage)

	storage := &racingStorage{MemoryStorage: testutil.NewMemoryStorage()}
	im := NewImporter(storage, root)
	_, err := im.ImportFile(ctx, path)
	require.NoError(t, err)

	writeFile(t, root, "Docs/Install.xwiki", "edited by hand\n")
	storage.races = 10

	_, err = im.ImportFile(ctx, path)
	require.ErrorIs(t, err, doc.ErrConflict)
	assert.Equal(t, 10-maxImportAttempts, storage.races)
}

func TestDedupe(t *testing.T) {
	got := dedupe([]Change{
		{Path: "a", Op: OpWrite},
		{Path: "b", Op: OpWrite},
		{Path: "a", Op: OpRemove},
	})
	assert.Equal(t, []Change{{Path: "a", Op: OpRemove}, {Path: "b", Op: OpWrite}}, got)
}

func TestWatcher_DeliversDebouncedBatches(t *testing.T) {
	root := t.TempDir()

	var (
		mu      sync.Mutex
		batches [][]Change
	)
	w, err := NewWatcher(root, 50*time.Millisecond, func(_ context.Context, changes []Change) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, changes)
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	path := writeFile(t, root, "Page.xwiki", "one")
	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	var paths []string
	for _, c := range batches[0] {
		paths = append(paths, c.Path)
	}
	assert.Contains(t, paths, path)
	assert.Len(t, paths, 1, "repeated writes to one file collapse")
}
