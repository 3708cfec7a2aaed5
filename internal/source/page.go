// Package source imports pages from a directory tree into the store and
// watches the tree for changes.
//
// A page file holds optional YAML front matter followed by the body:
//
//	---
//	title: Install
//	documentation:
//	  target: user
//	---
//	Body in XWiki 2.1 syntax.
//
// The document ID is the file path relative to the root with separators
// replaced by dots and the extension dropped: A/B/Page.xwiki -> A.B.Page.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/docguard/internal/doc"
)

var frontMatterDelim = []byte("---")

// FrontMatter is the YAML header of a page file.
type FrontMatter struct {
	Title         string         `yaml:"title"`
	Documentation *Documentation `yaml:"documentation"`
}

// Documentation marks a page as a documentation page.
type Documentation struct {
	Target string `yaml:"target"`
}

// Page is a parsed page file.
type Page struct {
	FrontMatter
	Body string
}

// ParsePage splits front matter from the body. A file without a leading
// "---" line is all body.
func ParsePage(data []byte) (Page, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(data, frontMatterDelim) {
		return Page{Body: string(data)}, nil
	}

	lines := bytes.SplitAfter(data, []byte("\n"))
	if len(lines) == 0 || !bytes.Equal(bytes.TrimRight(lines[0], "\r\n"), frontMatterDelim) {
		return Page{Body: string(data)}, nil
	}

	var header bytes.Buffer
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimRight(lines[i], "\r\n"), frontMatterDelim) {
			var fm FrontMatter
			if header.Len() > 0 {
				dec := yaml.NewDecoder(&header)
				dec.KnownFields(true)
				if err := dec.Decode(&fm); err != nil && !errors.Is(err, io.EOF) {
					return Page{}, fmt.Errorf("parse front matter: %w", err)
				}
			}
			return Page{FrontMatter: fm, Body: string(bytes.Join(lines[i+1:], nil))}, nil
		}
		header.Write(lines[i])
	}
	return Page{}, fmt.Errorf("parse front matter: missing closing %q", frontMatterDelim)
}

// Apply copies the page into d, keeping d's identity, version and slots.
func (p Page) Apply(d doc.Document) doc.Document {
	d.Title = p.Title
	d.Content = p.Body
	d.Documentation = nil
	if p.Documentation != nil {
		d.Documentation = &doc.DocumentationInfo{Target: p.Documentation.Target}
	}
	return d
}

// DocumentID derives a document ID from a path relative to the root.
func DocumentID(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(strings.Trim(rel, "/"), "/", ".")
}
