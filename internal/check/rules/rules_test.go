package rules

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docguard/internal/check"
	"github.com/roach88/docguard/internal/doc"
)

// mapFetcher serves documents from a map.
type mapFetcher struct {
	docs map[string]doc.Document
	err  error
}

func (f mapFetcher) Fetch(_ context.Context, id string) (doc.Document, error) {
	if f.err != nil {
		return doc.Document{}, f.err
	}
	d, ok := f.docs[id]
	if !ok {
		return doc.Document{}, doc.ErrNotFound
	}
	return d, nil
}

func page(content string) doc.Document {
	return doc.Document{
		ID:            "Documentation.User.Install",
		Content:       content,
		Documentation: &doc.DocumentationInfo{Target: "user"},
	}
}

func TestImageMacroCheck(t *testing.T) {
	ctx := context.Background()

	got, err := ImageMacroCheck{}.Check(ctx, page("Intro\n[[image:shot.png]]\n[[image:other.png||width=\"20\"]]"))
	require.NoError(t, err)
	assert.Equal(t, []doc.Violation{
		{Message: "Use the Image macro instead.", Context: "Image reference : shot.png", Severity: doc.SeverityError},
		{Message: "Use the Image macro instead.", Context: "Image reference : other.png", Severity: doc.SeverityError},
	}, got)

	got, err = ImageMacroCheck{}.Check(ctx, page(`{{image reference="shot.png"/}}`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestImageMacroCheck_IgnoresGalleryBodies(t *testing.T) {
	content := "{{gallery}}\n[[image:a.png]]\n{{/gallery}}\n[[image:b.png]]"
	got, err := ImageMacroCheck{}.Check(context.Background(), page(content))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Image reference : b.png", got[0].Context)
}

func TestImageMacroAltCheck(t *testing.T) {
	ctx := context.Background()

	got, err := ImageMacroAltCheck{}.Check(ctx, page("{{image reference='test.png'/}}"))
	require.NoError(t, err)
	assert.Equal(t, []doc.Violation{{
		Message:  "Missing 'alt' parameter usage in the Image macro.",
		Context:  "Image reference : test.png",
		Severity: doc.SeverityWarning,
	}}, got)

	got, err = ImageMacroAltCheck{}.Check(ctx, page("{{image reference='test.png' alt='test'/}}"))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ImageMacroAltCheck{}.Check(ctx, page(`{{image reference="a.png" alt=""/}} and {{image reference="b.png"}}`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Image reference : b.png", got[0].Context)
}

func TestParseParams_Quotes(t *testing.T) {
	assert.Equal(t, map[string]string{"reference": "a.png", "alt": "it's"},
		parseParams(`reference='a.png' alt="it's"`))
}

func TestImageGalleryCheck(t *testing.T) {
	ctx := context.Background()

	content := "{{image reference=\"a.png\"/}}\n{{image reference=\"b.png\"/}}"
	got, err := ImageGalleryCheck{}.Check(ctx, page(content))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Use the Gallery macro when several images are displayed next to each other.", got[0].Message)
	assert.Equal(t, content, got[0].Context)
	assert.Equal(t, doc.SeverityError, got[0].Severity)

	got, err = ImageGalleryCheck{}.Check(ctx, page("{{image reference=\"a.png\"/}}\n\nSome text\n\n{{image reference=\"b.png\"/}}"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGalleryMacroAltCheck(t *testing.T) {
	content := "{{gallery}}\n[[image:a.png||alt=\"First\"]]\n[[image:b.png]]\n{{/gallery}}\n[[image:c.png]]"
	got, err := GalleryMacroAltCheck{}.Check(context.Background(), page(content))
	require.NoError(t, err)
	assert.Equal(t, []doc.Violation{{
		Message:  "Images inside the Gallery macro should specify an 'alt' parameter.",
		Context:  "Image reference : b.png",
		Severity: doc.SeverityWarning,
	}}, got)
}

func TestGalleryMacroAltCheck_UnterminatedGalleryIsSkipped(t *testing.T) {
	got, err := GalleryMacroAltCheck{}.Check(context.Background(), page("{{gallery}}\n[[image:a.png]]"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNavigationPageID(t *testing.T) {
	assert.Equal(t, "Documentation.Data.NavigationForUsers", NavigationPageID("user"))
	assert.Equal(t, "Documentation.Data.NavigationForDevelopers", NavigationPageID("developer"))
	assert.Equal(t, "Documentation.Data.NavigationFors", NavigationPageID(""))
}

func TestNavigationCheck(t *testing.T) {
	ctx := context.Background()
	navID := "Documentation.Data.NavigationForUsers"

	t.Run("listed", func(t *testing.T) {
		f := mapFetcher{docs: map[string]doc.Document{
			navID: {ID: navID, Content: "* [[Install>>Documentation.User.Install]]"},
		}}
		got, err := NewNavigationCheck(f).Check(ctx, page(""))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("not listed", func(t *testing.T) {
		f := mapFetcher{docs: map[string]doc.Document{navID: {ID: navID, Content: "* nothing"}}}
		got, err := NewNavigationCheck(f).Check(ctx, page(""))
		require.NoError(t, err)
		assert.Equal(t, []doc.Violation{{
			Message:  "The current page must be listed in the navigation. Please edit [Documentation.Data.NavigationForUsers] to add it.",
			Context:  "",
			Severity: doc.SeverityError,
		}}, got)
	})

	t.Run("missing navigation page", func(t *testing.T) {
		got, err := NewNavigationCheck(mapFetcher{}).Check(ctx, page(""))
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("fetch failure", func(t *testing.T) {
		boom := errors.New("disk on fire")
		_, err := NewNavigationCheck(mapFetcher{err: boom}).Check(ctx, page(""))
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("not a documentation page", func(t *testing.T) {
		got, err := NewNavigationCheck(mapFetcher{}).Check(ctx, doc.Document{ID: "Main.WebHome"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestRegister(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := check.NewRegistry()
	require.NoError(t, Register(r, mapFetcher{}, logger))
	assert.ElementsMatch(t, DefaultNames(), r.Names())

	c, ok := r.Lookup(NameGalleryMacroAlt)
	require.True(t, ok)
	gallery, ok := c.(GalleryMacroAltCheck)
	require.True(t, ok)
	assert.Same(t, logger, gallery.Logger)

	assert.Error(t, Register(r, mapFetcher{}, logger), "second registration collides")
}
