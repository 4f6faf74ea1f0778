// Package langs lists the languages of a multilingual book.
package langs

import (
	"path"
	"strings"

	"github.com/geocine/folio/internal/location"
	"github.com/geocine/folio/internal/parser"
)

// Language is a translation of the book stored in its own folder
type Language struct {
	Title  string
	Folder string
}

// ID is the folder name, used as language code
func (l Language) ID() string {
	return path.Base(strings.TrimSuffix(l.Folder, "/"))
}

// Langs is the ordered list of languages
type Langs struct {
	path      string
	languages []Language
}

// Empty returns the list of a single-language book
func Empty() *Langs {
	return &Langs{}
}

// New builds the list from the parsed languages index
func New(path string, items []parser.LangItem) *Langs {
	l := &Langs{path: path}
	for _, item := range items {
		folder := location.Normalize(item.Ref)
		if folder == "." || folder == "" {
			continue
		}
		l.languages = append(l.languages, Language{
			Title:  item.Title,
			Folder: strings.TrimSuffix(folder, "/"),
		})
	}
	return l
}

// Path returns the languages index file
func (l *Langs) Path() string { return l.path }

// List returns the languages in order
func (l *Langs) List() []Language { return append([]Language(nil), l.languages...) }

// Count returns the number of languages
func (l *Langs) Count() int { return len(l.languages) }

// Default returns the first language
func (l *Langs) Default() (Language, bool) {
	if len(l.languages) == 0 {
		return Language{}, false
	}
	return l.languages[0], true
}

// Context returns {"list": [{"id", "title"}]}
func (l *Langs) Context() map[string]any {
	list := make([]any, 0, len(l.languages))
	for _, lang := range l.languages {
		list = append(list, map[string]any{
			"id":    lang.ID(),
			"title": lang.Title,
		})
	}
	return map[string]any{"list": list}
}
