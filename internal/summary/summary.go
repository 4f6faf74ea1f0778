// Package summary holds the table of contents of a book.
//
// Articles live in a single arena owned by the Summary and reference each other by index,
// so parent, children and the prev/next reading chain are plain integers.
package summary

import (
	"strconv"
	"strings"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/location"
	"github.com/geocine/folio/internal/parser"
)

// IntroductionTitle is the title of the article inserted for the readme
const IntroductionTitle = "Introduction"

const none = -1

// Article is an entry of the table of contents
type Article struct {
	ID    int
	Title string
	// Ref is the reference as written in the summary (path#anchor or URL)
	Ref string
	// Path is the normalized file path of an internal reference
	Path string
	// Anchor includes the leading "#"
	Anchor string
	Level  string

	IsIntroduction bool
	IsAutoIntro    bool

	part     int
	parent   int
	children []int
	prev     int
	next     int
}

// IsExternal reports whether the article points outside the book
func (a *Article) IsExternal() bool {
	return a.Ref != "" && location.IsExternal(a.Ref)
}

// HasLocation reports whether the article points to a file of the book
func (a *Article) HasLocation() bool {
	return a.Path != ""
}

// URL returns the external address, if any
func (a *Article) URL() string {
	if a.IsExternal() {
		return a.Ref
	}
	return ""
}

// Depth is the number of components of the level
func (a *Article) Depth() int {
	if a.Level == "" {
		return 0
	}
	return strings.Count(a.Level, ".") + 1
}

// HasChildren reports whether the article has nested articles
func (a *Article) HasChildren() bool { return len(a.children) > 0 }

// Part is a titled group of top level articles
type Part struct {
	Title    string
	articles []int
}

// Summary is the table of contents of a book
type Summary struct {
	path     string
	parts    []Part
	articles []Article
	order    []int
}

// Build places the parsed entries in an arena, inserts the introduction article when the
// first entry is not the readme, computes levels and chains articles in reading order.
func Build(path string, spec parser.SummarySpec, readmePath string) (*Summary, error) {
	s := &Summary{path: path}

	for i, p := range spec.Parts {
		s.parts = append(s.parts, Part{Title: p.Title})
		for _, e := range p.Articles {
			id, err := s.add(e, i, none)
			if err != nil {
				return nil, err
			}
			s.parts[i].articles = append(s.parts[i].articles, id)
		}
	}

	if len(s.parts) == 0 {
		s.parts = append(s.parts, Part{})
	}

	first := s.parts[0].articles
	if len(first) == 0 || s.articles[first[0]].Path != location.Normalize(readmePath) {
		id := s.alloc(Article{
			Title:       IntroductionTitle,
			Ref:         readmePath,
			Path:        location.Normalize(readmePath),
			IsAutoIntro: true,
			part:        0,
			parent:      none,
		})
		s.parts[0].articles = append([]int{id}, s.parts[0].articles...)
	}
	s.articles[s.parts[0].articles[0]].IsIntroduction = true

	s.index()
	return s, nil
}

func (s *Summary) alloc(a Article) int {
	a.ID = len(s.articles)
	a.prev, a.next = none, none
	s.articles = append(s.articles, a)
	return a.ID
}

func (s *Summary) add(e parser.SummaryEntry, part, parent int) (int, error) {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return none, errs.Parsing(s.path, "SUMMARY entries should have an non-empty title", nil)
	}

	a := Article{Title: title, Ref: e.Ref, part: part, parent: parent}
	if e.Ref != "" && !location.IsExternal(e.Ref) {
		p, anchor := e.Ref, ""
		if i := strings.LastIndex(e.Ref, "#"); i >= 0 {
			p, anchor = e.Ref[:i], e.Ref[i:]
		}
		if p != "" {
			a.Path = location.Normalize(p)
		}
		a.Anchor = anchor
	}

	id := s.alloc(a)
	for _, child := range e.Articles {
		cid, err := s.add(child, part, id)
		if err != nil {
			return none, err
		}
		s.articles[id].children = append(s.articles[id].children, cid)
	}
	return id, nil
}

// index assigns levels and links the reading chain in visitation order
func (s *Summary) index() {
	s.order = s.order[:0]
	prev := none
	s.walk(func(id int, level string) bool {
		a := &s.articles[id]
		a.Level = level
		a.prev = prev
		if prev != none {
			s.articles[prev].next = id
		}
		prev = id
		s.order = append(s.order, id)
		return true
	})
}

func levelID(base string, i int) string {
	if base == "" {
		return strconv.Itoa(i + 1)
	}
	return base + "." + strconv.Itoa(i+1)
}

// walk visits articles in reading order and computes their level on the way
func (s *Summary) walk(visit func(id int, level string) bool) {
	multi := len(s.parts) > 1

	var walkChildren func(ids []int, base string) bool
	walkChildren = func(ids []int, base string) bool {
		for i, id := range ids {
			level := levelID(base, i)
			if !visit(id, level) {
				return false
			}
			if !walkChildren(s.articles[id].children, level) {
				return false
			}
		}
		return true
	}

	for pi, part := range s.parts {
		base := ""
		if multi {
			base = levelID("", pi)
		}

		ids := part.articles
		if len(ids) == 0 {
			continue
		}
		if s.articles[ids[0]].IsIntroduction {
			if !visit(ids[0], "0") {
				return
			}
			ids = ids[1:]
		}
		if !walkChildren(ids, base) {
			return
		}
	}
}

// Path is the summary file the table of contents was read from
func (s *Summary) Path() string { return s.path }

// Walk visits every article in reading order; returning false stops the walk
func (s *Summary) Walk(visit func(a *Article) bool) {
	for _, id := range s.order {
		if !visit(&s.articles[id]) {
			return
		}
	}
}

// Find returns the first article matching pred in reading order
func (s *Summary) Find(pred func(a *Article) bool) *Article {
	var found *Article
	s.Walk(func(a *Article) bool {
		if pred(a) {
			found = a
			return false
		}
		return true
	})
	return found
}

// ArticleByPath returns the first article pointing to file
func (s *Summary) ArticleByPath(file string) *Article {
	file = location.Normalize(file)
	return s.Find(func(a *Article) bool { return a.Path != "" && a.Path == file })
}

// ArticleByLevel returns the article at level (e.g., "1.2")
func (s *Summary) ArticleByLevel(level string) *Article {
	return s.Find(func(a *Article) bool { return a.Level == level })
}

// Flatten returns every article in reading order
func (s *Summary) Flatten() []*Article {
	out := make([]*Article, 0, len(s.order))
	s.Walk(func(a *Article) bool {
		out = append(out, a)
		return true
	})
	return out
}

// Count returns the number of articles
func (s *Summary) Count() int { return len(s.order) }

// Parts returns the parts in order
func (s *Summary) Parts() []Part { return s.parts }

// Articles returns the top level articles of part
func (s *Summary) Articles(part Part) []*Article {
	return s.resolve(part.articles)
}

// First returns the first article in reading order
func (s *Summary) First() *Article {
	if len(s.order) == 0 {
		return nil
	}
	return &s.articles[s.order[0]]
}

// Next returns the article read after a, or nil
func (s *Summary) Next(a *Article) *Article { return s.at(a.next) }

// Prev returns the article read before a, or nil
func (s *Summary) Prev(a *Article) *Article { return s.at(a.prev) }

// Parent returns the enclosing article, or nil for top level articles
func (s *Summary) Parent(a *Article) *Article { return s.at(a.parent) }

// Children returns the nested articles of a
func (s *Summary) Children(a *Article) []*Article { return s.resolve(a.children) }

// PartOf returns the part holding a
func (s *Summary) PartOf(a *Article) Part { return s.parts[a.part] }

func (s *Summary) at(id int) *Article {
	if id == none {
		return nil
	}
	return &s.articles[id]
}

func (s *Summary) resolve(ids []int) []*Article {
	out := make([]*Article, 0, len(ids))
	for _, id := range ids {
		out = append(out, &s.articles[id])
	}
	return out
}

// ArticleContext is the template/JSON view of an article
func (s *Summary) ArticleContext(a *Article) map[string]any {
	ctx := map[string]any{
		"level":        a.Level,
		"title":        a.Title,
		"depth":        a.Depth(),
		"introduction": a.IsIntroduction,
		"external":     a.IsExternal(),
	}
	if a.IsExternal() {
		ctx["url"] = a.Ref
	} else {
		if a.Path != "" {
			ctx["path"] = a.Path
		}
		if a.Anchor != "" {
			ctx["anchor"] = a.Anchor
		}
	}
	if a.HasChildren() {
		children := make([]any, 0, len(a.children))
		for _, c := range s.Children(a) {
			children = append(children, s.ArticleContext(c))
		}
		ctx["articles"] = children
	}
	return ctx
}

// Context returns {"parts": [{"title", "articles"}]}
func (s *Summary) Context() map[string]any {
	parts := make([]any, 0, len(s.parts))
	for _, p := range s.parts {
		articles := make([]any, 0, len(p.articles))
		for _, a := range s.Articles(p) {
			articles = append(articles, s.ArticleContext(a))
		}
		parts = append(parts, map[string]any{
			"title":    p.Title,
			"articles": articles,
		})
	}
	return map[string]any{"parts": parts}
}
