package rules

import (
	"regexp"
	"strings"
)

var (
	galleryPattern        = regexp.MustCompile(`(?s)\{\{gallery(?:\s[^}]*)?\}\}(.*?)\{\{/gallery\}\}`)
	galleryOpenPattern    = regexp.MustCompile(`\{\{gallery(?:\s[^}]*)?\}\}`)
	imageSyntaxPattern    = regexp.MustCompile(`\[\[image:([^\]|]+?)(?:\|\|([^\]]*))?\]\]`)
	adjacentImagesPattern = regexp.MustCompile(`\{\{image[^}]*\}\}\s*\{\{image[^}]*\}\}`)
	imageMacroPattern     = regexp.MustCompile(`\{\{image(\s[^}]*?)?/?\}\}`)
	paramPattern          = regexp.MustCompile(`([A-Za-z][\w-]*)=(?:"([^"]*)"|'([^']*)')`)
)

// imageRef is one occurrence of the image syntax.
type imageRef struct {
	Reference string
	Params    map[string]string
}

// findImages returns every [[image:...]] occurrence in order.
func findImages(content string) []imageRef {
	var out []imageRef
	for _, m := range imageSyntaxPattern.FindAllStringSubmatch(content, -1) {
		out = append(out, imageRef{
			Reference: strings.TrimSpace(m[1]),
			Params:    parseParams(m[2]),
		})
	}
	return out
}

// findImageMacros returns every {{image .../}} macro in order. Reference
// holds the reference parameter.
func findImageMacros(content string) []imageRef {
	var out []imageRef
	for _, m := range imageMacroPattern.FindAllStringSubmatch(content, -1) {
		params := parseParams(m[1])
		out = append(out, imageRef{Reference: params["reference"], Params: params})
	}
	return out
}

// parseParams reads name="value" and name='value' pairs.
func parseParams(raw string) map[string]string {
	params := make(map[string]string)
	for _, m := range paramPattern.FindAllStringSubmatch(raw, -1) {
		if strings.HasPrefix(m[0][len(m[1])+1:], "'") {
			params[m[1]] = m[3]
		} else {
			params[m[1]] = m[2]
		}
	}
	return params
}

// splitGalleries separates gallery macro bodies from the rest of the page.
// unterminated reports a {{gallery}} opening with no matching close.
func splitGalleries(content string) (outside string, bodies []string, unterminated bool) {
	var b strings.Builder
	last := 0
	for _, loc := range galleryPattern.FindAllStringSubmatchIndex(content, -1) {
		b.WriteString(content[last:loc[0]])
		bodies = append(bodies, content[loc[2]:loc[3]])
		last = loc[1]
	}
	b.WriteString(content[last:])
	outside = b.String()
	unterminated = galleryOpenPattern.MatchString(outside)
	return outside, bodies, unterminated
}
