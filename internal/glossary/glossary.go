// Package glossary indexes the terms a book defines.
package glossary

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/geocine/folio/internal/parser"
)

var unsafeChars = regexp.MustCompile(`[/\\?%*:;|"'<>#$()!.@]`)

// NameToID converts a term to the identifier used as anchor
func NameToID(name string) string {
	id := strings.ToLower(name)
	id = unsafeChars.ReplaceAllString(id, "")
	id = strings.ReplaceAll(id, " ", "_")
	return strings.TrimSpace(id)
}

// Entry is a glossary term
type Entry struct {
	ID          string
	Name        string
	Description string
}

// Annotation is what the page pipeline needs to link a term
type Annotation struct {
	ID          string
	Name        string
	Description string
	Href        string
}

// Glossary maps term ids to entries, keeping declaration order
type Glossary struct {
	path    string
	entries []Entry
	byID    map[string]int
}

// Empty returns a glossary without file or entries
func Empty() *Glossary {
	return &Glossary{byID: map[string]int{}}
}

// New indexes items read from path. Terms with the same id replace the earlier definition.
func New(path string, items []parser.GlossaryItem, logger *zap.Logger) *Glossary {
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Glossary{path: path, byID: map[string]int{}}
	for _, item := range items {
		e := Entry{ID: NameToID(item.Name), Name: item.Name, Description: item.Description}
		if i, ok := g.byID[e.ID]; ok {
			logger.Warn("Duplicate glossary entry replaces earlier definition",
				zap.String("id", e.ID),
				zap.String("previous", g.entries[i].Name),
				zap.String("name", e.Name))
			g.entries[i] = e
			continue
		}
		g.byID[e.ID] = len(g.entries)
		g.entries = append(g.entries, e)
	}
	return g
}

// Path returns the glossary file, empty when the book has none
func (g *Glossary) Path() string { return g.path }

// Exists reports whether the glossary was read from a file
func (g *Glossary) Exists() bool { return g.path != "" }

// Get returns the entry with id
func (g *Glossary) Get(id string) (Entry, bool) {
	i, ok := g.byID[id]
	if !ok {
		return Entry{}, false
	}
	return g.entries[i], true
}

// Find returns the entry for a term name
func (g *Glossary) Find(name string) (Entry, bool) {
	return g.Get(NameToID(name))
}

// Entries returns the entries in declaration order
func (g *Glossary) Entries() []Entry {
	return append([]Entry(nil), g.entries...)
}

// Count returns the number of entries
func (g *Glossary) Count() int { return len(g.entries) }

// Annotations returns one annotation per entry, linking to the term in the glossary page
func (g *Glossary) Annotations() []Annotation {
	out := make([]Annotation, 0, len(g.entries))
	for _, e := range g.entries {
		out = append(out, Annotation{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Href:        "/" + g.path + "#" + e.ID,
		})
	}
	return out
}

// Context returns the template/JSON view: {"path", "entries"}
func (g *Glossary) Context() map[string]any {
	entries := make([]any, 0, len(g.entries))
	for _, e := range g.entries {
		entries = append(entries, map[string]any{
			"id":          e.ID,
			"name":        e.Name,
			"description": e.Description,
		})
	}
	return map[string]any{
		"path":    g.path,
		"entries": entries,
	}
}
