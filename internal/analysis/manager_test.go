package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docguard/internal/check"
	"github.com/roach88/docguard/internal/doc"
	"github.com/roach88/docguard/internal/telemetry"
	"github.com/roach88/docguard/internal/testutil"
)

// setupManager wires a manager over in-memory storage with one scripted check.
func setupManager(t *testing.T, vs ...doc.Violation) (*Manager, *testutil.MemoryStorage, *testutil.ScriptedCheck) {
	t.Helper()
	storage := testutil.NewMemoryStorage()
	scripted := testutil.NewScriptedCheck("scripted", vs...)
	r := check.NewRegistry()
	r.MustRegister(scripted)
	m := NewManager(storage, r, WithMetrics(telemetry.NewMetrics(prometheus.NewRegistry())))
	return m, storage, scripted
}

func TestAnalyze_FirstViolationCreatesSlotZero(t *testing.T) {
	m, storage, _ := setupManager(t, v("msg", "ctx", doc.SeverityError))
	d := storage.Put(doc.Document{ID: "Doc.A"})

	report, err := m.Analyze(context.Background(), d)
	require.NoError(t, err)

	assert.True(t, report.Changed)
	assert.Equal(t, []int{0}, report.Added)
	assert.Equal(t, []doc.Slot{active(0, v("msg", "ctx", doc.SeverityError))}, report.Document.Slots)

	saves := storage.Saves()
	require.Len(t, saves, 1)
	assert.Equal(t, "Documentation analysis", saves[0].Comment)
	assert.Equal(t, "superadmin", saves[0].Author)
}

func TestAnalyze_ReplacedViolation(t *testing.T) {
	m, storage, _ := setupManager(t, v("new", "newctx", doc.SeverityError))
	d := storage.Put(doc.Document{ID: "Doc.A", Slots: []doc.Slot{active(0, v("old", "oldctx", doc.SeverityError))}})

	report, err := m.Analyze(context.Background(), d)
	require.NoError(t, err)

	assert.True(t, report.Changed)
	assert.Equal(t, []doc.Slot{tomb(0), active(1, v("new", "newctx", doc.SeverityError))}, report.Document.Slots)
}

func TestAnalyze_IdenticalViolationNoSave(t *testing.T) {
	m, storage, _ := setupManager(t, v("m", "c", doc.SeverityError))
	d := storage.Put(doc.Document{ID: "Doc.A", Slots: []doc.Slot{active(0, v("m", "c", doc.SeverityError))}})

	report, err := m.Analyze(context.Background(), d)
	require.NoError(t, err)

	assert.False(t, report.Changed)
	assert.Equal(t, d.Version, report.Version)
	assert.Zero(t, storage.SaveCount())
}

func TestAnalyze_AllViolationsGone(t *testing.T) {
	m, storage, _ := setupManager(t)
	d := storage.Put(doc.Document{ID: "Doc.A", Slots: []doc.Slot{tomb(0), active(1, v("m2", "c2", doc.SeverityWarning))}})

	report, err := m.Analyze(context.Background(), d)
	require.NoError(t, err)

	assert.True(t, report.Changed)
	assert.Equal(t, []doc.Slot{tomb(0), tomb(1)}, report.Document.Slots)
	assert.Equal(t, []int{1}, report.Removed)
}

func TestAnalyze_Idempotent(t *testing.T) {
	m, storage, _ := setupManager(t, v("a", "", doc.SeverityError), v("b", "", doc.SeverityWarning))
	d := storage.Put(doc.Document{ID: "Doc.A"})
	ctx := context.Background()

	first, err := m.Analyze(ctx, d)
	require.NoError(t, err)
	require.True(t, first.Changed)

	second, err := m.Analyze(ctx, first.Document)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, 1, storage.SaveCount())
}

func TestAnalyze_Converges(t *testing.T) {
	m, storage, scripted := setupManager(t)
	ctx := context.Background()
	current := storage.Put(doc.Document{ID: "Doc.A"})

	sequence := [][]doc.Violation{
		{v("a", "", doc.SeverityError)},
		{v("a", "", doc.SeverityError), v("b", "", doc.SeverityWarning)},
		{v("b", "", doc.SeverityWarning), v("b", "", doc.SeverityWarning)},
		{},
		{v("a", "", doc.SeverityError)},
	}
	for _, candidates := range sequence {
		scripted.Set(candidates...)
		report, err := m.Analyze(ctx, current)
		require.NoError(t, err)
		current = report.Document
	}

	// Repeating the last candidate set reaches and keeps the fixed point.
	for i := 0; i < 3; i++ {
		report, err := m.Analyze(ctx, current)
		require.NoError(t, err)
		assert.False(t, report.Changed, "pass %d", i)
		current = report.Document
	}
	assert.NoError(t, doc.ValidateSlots(current.Slots))
	assert.Equal(t, []doc.Violation{v("a", "", doc.SeverityError)}, current.ActiveViolations())
}

func TestAnalyze_CheckFailureLeavesSlotsUntouched(t *testing.T) {
	storage := testutil.NewMemoryStorage()
	boom := errors.New("parser exploded")
	r := check.NewRegistry()
	r.MustRegister(
		testutil.StaticCheck{CheckName: "ok", Violations: []doc.Violation{v("new", "", doc.SeverityError)}},
		testutil.FailingCheck{CheckName: "broken", Err: boom},
	)
	m := NewManager(storage, r)

	original := []doc.Slot{active(0, v("old", "", doc.SeverityError)), tomb(1)}
	d := storage.Put(doc.Document{ID: "Doc.A", Slots: original})

	_, err := m.Analyze(context.Background(), d)
	require.Error(t, err)
	assert.True(t, IsAnalysisError(err))
	assert.True(t, IsCheckExecutionError(err))
	assert.ErrorIs(t, err, boom)

	var ae *AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Doc.A", ae.DocumentID)

	after, err := storage.Fetch(context.Background(), "Doc.A")
	require.NoError(t, err)
	assert.Equal(t, original, after.Slots)
	assert.Equal(t, original, d.Slots, "caller's snapshot is not mutated")
	assert.Zero(t, storage.SaveCount())
}

func TestAnalyze_PersistenceFailure(t *testing.T) {
	m, storage, _ := setupManager(t, v("m", "", doc.SeverityError))
	d := storage.Put(doc.Document{ID: "Doc.A"})
	boom := errors.New("disk full")
	storage.FailSaves(boom)

	_, err := m.Analyze(context.Background(), d)
	require.Error(t, err)
	assert.True(t, IsAnalysisError(err))
	assert.True(t, IsPersistenceError(err))
	assert.False(t, IsCheckExecutionError(err))
	assert.ErrorIs(t, err, boom)
}

func TestAnalyze_StaleSnapshotConflicts(t *testing.T) {
	m, storage, _ := setupManager(t, v("m", "", doc.SeverityError))
	ctx := context.Background()
	stale := storage.Put(doc.Document{ID: "Doc.A"})

	edited := stale.Clone()
	edited.Content = "newer"
	_, err := storage.Save(ctx, edited, "edit", "alice")
	require.NoError(t, err)

	_, err = m.Analyze(ctx, stale)
	require.Error(t, err)
	assert.True(t, IsPersistenceError(err))
	assert.ErrorIs(t, err, doc.ErrConflict)
}

func TestAnalyze_WithSystemAuthor(t *testing.T) {
	storage := testutil.NewMemoryStorage()
	r := check.NewRegistry()
	r.MustRegister(testutil.StaticCheck{CheckName: "s", Violations: []doc.Violation{v("m", "", doc.SeverityError)}})
	m := NewManager(storage, r, WithSystemAuthor("docbot"))

	_, err := m.Analyze(context.Background(), storage.Put(doc.Document{ID: "Doc.A"}))
	require.NoError(t, err)
	assert.Equal(t, "docbot", storage.Saves()[0].Author)
}
