package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/docguard/internal/doc"
)

// Check names.
const (
	NameImageMacro      = "imageMacro"
	NameImageMacroAlt   = "imageMacroAlt"
	NameImageGallery    = "imageGallery"
	NameGalleryMacroAlt = "galleryMacroAlt"
	NameNavigation      = "navigation"
)

// ImageMacroCheck flags the image syntax; pages must use the image or
// gallery macros instead. Images inside gallery bodies are left to
// GalleryMacroAltCheck.
type ImageMacroCheck struct{}

// Name implements check.Check.
func (ImageMacroCheck) Name() string { return NameImageMacro }

// Check implements check.Check.
func (ImageMacroCheck) Check(_ context.Context, d doc.Document) ([]doc.Violation, error) {
	outside, _, _ := splitGalleries(d.Content)

	var violations []doc.Violation
	for _, img := range findImages(outside) {
		violations = append(violations, doc.NewViolation(
			"Use the Image macro instead.",
			fmt.Sprintf("Image reference : %s", img.Reference),
			doc.SeverityError,
		))
	}
	return violations, nil
}

// ImageMacroAltCheck requires an alt parameter on every image macro.
type ImageMacroAltCheck struct{}

// Name implements check.Check.
func (ImageMacroAltCheck) Name() string { return NameImageMacroAlt }

// Check implements check.Check.
func (ImageMacroAltCheck) Check(_ context.Context, d doc.Document) ([]doc.Violation, error) {
	var violations []doc.Violation
	for _, img := range findImageMacros(d.Content) {
		if _, ok := img.Params["alt"]; ok {
			continue
		}
		violations = append(violations, doc.NewViolation(
			"Missing 'alt' parameter usage in the Image macro.",
			fmt.Sprintf("Image reference : %s", img.Reference),
			doc.SeverityWarning,
		))
	}
	return violations, nil
}

// ImageGalleryCheck flags image macros placed next to each other; those
// should be grouped in a gallery macro.
type ImageGalleryCheck struct{}

// Name implements check.Check.
func (ImageGalleryCheck) Name() string { return NameImageGallery }

// Check implements check.Check.
func (ImageGalleryCheck) Check(_ context.Context, d doc.Document) ([]doc.Violation, error) {
	match := adjacentImagesPattern.FindString(d.Content)
	if match == "" {
		return nil, nil
	}
	return []doc.Violation{doc.NewViolation(
		"Use the Gallery macro when several images are displayed next to each other.",
		match,
		doc.SeverityError,
	)}, nil
}

// GalleryMacroAltCheck requires an alt parameter on every image inside a
// gallery macro.
type GalleryMacroAltCheck struct {
	Logger *slog.Logger
}

// Name implements check.Check.
func (GalleryMacroAltCheck) Name() string { return NameGalleryMacroAlt }

// Check implements check.Check.
func (c GalleryMacroAltCheck) Check(_ context.Context, d doc.Document) ([]doc.Violation, error) {
	_, bodies, unterminated := splitGalleries(d.Content)
	if unterminated {
		// Malformed markup is not itself a violation.
		c.logger().Warn("unterminated gallery macro, skipping its content",
			"document", d.ID,
			"check", NameGalleryMacroAlt,
		)
	}

	var violations []doc.Violation
	for _, body := range bodies {
		for _, img := range findImages(body) {
			if _, ok := img.Params["alt"]; ok {
				continue
			}
			violations = append(violations, doc.NewViolation(
				"Images inside the Gallery macro should specify an 'alt' parameter.",
				fmt.Sprintf("Image reference : %s", img.Reference),
				doc.SeverityWarning,
			))
		}
	}
	return violations, nil
}

func (c GalleryMacroAltCheck) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
