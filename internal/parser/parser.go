// Package parser adapts markup languages to the structures a book is assembled from.
package parser

import (
	"path"
	"strings"
)

// Readme is the title and description found in a readme file
type Readme struct {
	Title       string
	Description string
}

// SummaryEntry is a table of contents entry before it is placed in the arena
type SummaryEntry struct {
	Title    string
	Ref      string
	Articles []SummaryEntry
}

// SummaryPart groups top level entries, optionally under a title
type SummaryPart struct {
	Title    string
	Articles []SummaryEntry
}

// SummarySpec is the parsed table of contents
type SummarySpec struct {
	Parts []SummaryPart
}

// GlossaryItem is a term and its description
type GlossaryItem struct {
	Name        string
	Description string
}

// LangItem is an entry of the languages index
type LangItem struct {
	Title string
	Ref   string
}

// Parser turns markup into HTML and into the structures of a book
type Parser interface {
	// Name is the page type exposed to templates ("markdown", "asciidoc")
	Name() string
	Extensions() []string

	Readme(src string) (Readme, error)
	Summary(src string) (SummarySpec, error)
	Glossary(src string) ([]GlossaryItem, error)
	Langs(src string) ([]LangItem, error)

	// PagePrepare runs on the raw page source before templating
	PagePrepare(src string) (string, error)
	// Page renders a whole page
	Page(src string) (string, error)
	// Inline renders a fragment without the wrapping paragraph
	Inline(src string) (string, error)
}

var registry = []Parser{
	NewMarkdown(),
	NewAsciiDoc(),
}

// All returns the registered parsers in lookup order
func All() []Parser {
	return append([]Parser(nil), registry...)
}

// Extensions returns every extension handled by a parser, in lookup order
func Extensions() []string {
	var exts []string
	for _, p := range registry {
		exts = append(exts, p.Extensions()...)
	}
	return exts
}

// Get returns the parser for an extension (".md") or a type name ("markdown")
func Get(extOrName string) (Parser, bool) {
	key := strings.ToLower(extOrName)
	for _, p := range registry {
		if p.Name() == key {
			return p, true
		}
		for _, e := range p.Extensions() {
			if e == key {
				return p, true
			}
		}
	}
	return nil, false
}

// ForFile returns the parser handling filename's extension
func ForFile(filename string) (Parser, bool) {
	ext := path.Ext(filename)
	if ext == "" {
		return nil, false
	}
	return Get(ext)
}
