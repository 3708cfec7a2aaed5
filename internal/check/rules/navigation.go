package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/docguard/internal/check"
	"github.com/roach88/docguard/internal/doc"
)

// NavigationSpace holds the per-audience navigation pages.
const NavigationSpace = "Documentation.Data"

// Fetcher reads auxiliary documents. Implemented by store.Store.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (doc.Document, error)
}

// NavigationCheck verifies that a documentation page is listed in the
// navigation page of its target audience.
type NavigationCheck struct {
	fetcher Fetcher
}

// NewNavigationCheck creates a NavigationCheck reading navigation pages
// through fetcher.
func NewNavigationCheck(fetcher Fetcher) *NavigationCheck {
	return &NavigationCheck{fetcher: fetcher}
}

// NavigationPageID returns the navigation page for a target, e.g.
// "user" -> "Documentation.Data.NavigationForUsers".
func NavigationPageID(target string) string {
	return fmt.Sprintf("%s.NavigationFor%ss", NavigationSpace, capitalize(target))
}

// Name implements check.Check.
func (c *NavigationCheck) Name() string { return NameNavigation }

// Check implements check.Check.
//
// A missing navigation page counts as an empty one. Any other fetch
// failure fails the check.
func (c *NavigationCheck) Check(ctx context.Context, d doc.Document) ([]doc.Violation, error) {
	if !d.IsDocumentation() {
		return nil, nil
	}

	navID := NavigationPageID(d.Documentation.Target)
	nav, err := c.fetcher.Fetch(ctx, navID)
	if err != nil && !errors.Is(err, doc.ErrNotFound) {
		return nil, fmt.Errorf("retrieve navigation document [%s]: %w", navID, err)
	}

	if strings.Contains(nav.Content, d.ID) {
		return nil, nil
	}
	return []doc.Violation{doc.NewViolation(
		fmt.Sprintf("The current page must be listed in the navigation. Please edit [%s] to add it.", navID),
		"",
		doc.SeverityError,
	)}, nil
}

// capitalize upper-cases the first rune only.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Register adds every built-in check to r. The navigation check reads
// through fetcher; logger receives gallery parse warnings.
func Register(r *check.Registry, fetcher Fetcher, logger *slog.Logger) error {
	for _, c := range []check.Check{
		ImageMacroCheck{},
		ImageMacroAltCheck{},
		ImageGalleryCheck{},
		GalleryMacroAltCheck{Logger: logger},
		NewNavigationCheck(fetcher),
	} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// DefaultNames lists the built-in check names.
func DefaultNames() []string {
	return []string{NameImageMacro, NameImageMacroAlt, NameImageGallery, NameGalleryMacroAlt, NameNavigation}
}
