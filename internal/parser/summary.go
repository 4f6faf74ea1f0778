package parser

import (
	"github.com/yuin/goldmark/ast"
)

// Summary reads the table of contents.
// The first level heading is the document title and is ignored. Deeper headings open a titled
// part, thematic breaks open an untitled part, and lists hold the articles.
func (m *Markdown) Summary(src string) (SummarySpec, error) {
	doc, source := m.parse(src)

	var spec SummarySpec
	var current *SummaryPart
	openPart := func(title string) {
		if current != nil && current.Title == "" && len(current.Articles) == 0 {
			current.Title = title
			return
		}
		spec.Parts = append(spec.Parts, SummaryPart{Title: title})
		current = &spec.Parts[len(spec.Parts)-1]
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 {
				continue
			}
			openPart(textOf(node, source))
		case *ast.ThematicBreak:
			if current != nil {
				openPart("")
			}
		case *ast.List:
			if current == nil {
				openPart("")
			}
			current.Articles = append(current.Articles, listEntries(node, source)...)
		}
	}
	return spec, nil
}

// Langs reads the languages index: a list of links to the language folders
func (m *Markdown) Langs(src string) ([]LangItem, error) {
	spec, err := m.Summary(src)
	if err != nil {
		return nil, err
	}
	return langsFromSummary(spec), nil
}

func listEntries(list *ast.List, source []byte) []SummaryEntry {
	var entries []SummaryEntry
	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		if _, ok := li.(*ast.ListItem); !ok {
			continue
		}

		var e SummaryEntry
		titled := false
		for c := li.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				e.Articles = append(e.Articles, listEntries(sub, source)...)
				continue
			}
			if titled {
				continue
			}
			titled = true
			if link := firstLink(c); link != nil {
				e.Title = textOf(link, source)
				e.Ref = string(link.Destination)
			} else {
				e.Title = textOf(c, source)
			}
		}
		entries = append(entries, e)
	}
	return entries
}

func firstLink(n ast.Node) *ast.Link {
	var found *ast.Link
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if l, ok := c.(*ast.Link); ok {
			found = l
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}

func langsFromSummary(spec SummarySpec) []LangItem {
	var langs []LangItem
	if len(spec.Parts) == 0 {
		return langs
	}
	for _, a := range spec.Parts[0].Articles {
		if a.Ref == "" {
			continue
		}
		langs = append(langs, LangItem{Title: a.Title, Ref: a.Ref})
	}
	return langs
}

// Count returns the number of entries at every depth
func (s SummarySpec) Count() int {
	n := 0
	var count func([]SummaryEntry)
	count = func(entries []SummaryEntry) {
		for _, e := range entries {
			n++
			count(e.Articles)
		}
	}
	for _, p := range s.Parts {
		count(p.Articles)
	}
	return n
}
