// Package page renders one parsable file of a book into HTML.
package page

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/geocine/folio/internal/config"
	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/glossary"
	"github.com/geocine/folio/internal/langs"
	"github.com/geocine/folio/internal/location"
	"github.com/geocine/folio/internal/parser"
	"github.com/geocine/folio/internal/plugins"
	"github.com/geocine/folio/internal/summary"
	"github.com/geocine/folio/internal/template"
)

// Book is what a page needs from the book it belongs to
type Book interface {
	ReadFile(name string) (string, error)
	ModTime(name string) (time.Time, error)
	Page(name string) (*Page, bool)

	Config() *config.Config
	Summary() *summary.Summary
	Glossary() *glossary.Glossary
	Langs() *langs.Langs
	// Context returns the "book" template context
	Context() map[string]any
}

// Output is the generation a page is rendered for
type Output interface {
	Name() string
	Template() *template.Engine
	HookPage(ctx context.Context, name string, in plugins.PageInput) (string, error)

	OnRelativeLink(p *Page, href string) string
	OnOutputImage(ctx context.Context, p *Page, src string) (string, error)
	// OnOutputSVG returns the file the svg was written to, or "" to keep it inline
	OnOutputSVG(ctx context.Context, p *Page, svg string) (string, error)
}

// Page is a parsable file of the book. Content is rewritten by each stage of ToHTML.
type Page struct {
	book Book

	// Path is relative to the book root
	Path string
	// RawPath is the location of the file in the book filesystem
	RawPath string
	MTime   time.Time

	Parser parser.Parser
	// Type is the parser name
	Type string

	Content     string
	Description string
}

// New creates the page for filename, which must have a parsable extension
func New(b Book, filename, rawPath string) (*Page, error) {
	p := &Page{
		book:    b,
		Path:    location.Normalize(filename),
		RawPath: rawPath,
	}

	parsr, ok := parser.ForFile(p.Path)
	if !ok {
		return nil, errs.Parsing(p.Path, `Can't parse file "`+p.Path+`"`, nil)
	}
	p.Parser = parsr
	p.Type = parsr.Name()
	return p, nil
}

// WithExtension returns the path of the page with another extension: "README.md" -> "README.html"
func (p *Page) WithExtension(ext string) string {
	return location.SetExtension(p.Path, ext)
}

// Dir is the directory of the page, relative to the book root
func (p *Page) Dir() string {
	return path.Dir(p.Path)
}

// ResolveLocal resolves a file referenced from this page to a path relative to the book root
func (p *Page) ResolveLocal(parts ...string) string {
	return location.ToAbsolute(strings.Join(parts, "/"), p.Dir(), "")
}

// Relative converts a path relative to the book root into a path relative to this page
func (p *Page) Relative(name string) string {
	name = location.ToAbsolute(name, "", "")
	return location.Relative(p.Dir(), name)
}

// FollowPage returns the page referenced by href from this page, if the book has it
func (p *Page) FollowPage(href string) (*Page, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	return p.book.Page(p.ResolveLocal(u.Path))
}

// Article returns the summary entry of this page
func (p *Page) Article() *summary.Article {
	if s := p.book.Summary(); s != nil {
		return s.ArticleByPath(p.Path)
	}
	return nil
}

// Title is the title of the summary entry, or "" when the page is not in the summary
func (p *Page) Title() string {
	if a := p.Article(); a != nil {
		return a.Title
	}
	return ""
}

func (p *Page) read() error {
	mtime, err := p.book.ModTime(p.Path)
	if err != nil {
		return err
	}
	content, err := p.book.ReadFile(p.Path)
	if err != nil {
		return err
	}
	p.MTime = mtime
	p.Content = content
	return nil
}

// Direction returns the configured text direction, or the one detected in the content
func (p *Page) Direction() string {
	if dir := p.book.Config().Direction(); dir != "" {
		return dir
	}
	return DetectDirection(p.Content)
}

func (p *Page) input() plugins.PageInput {
	return plugins.PageInput{
		Type:    p.Type,
		Content: p.Content,
		Path:    p.Path,
		RawPath: p.RawPath,
		Title:   p.Title(),
	}
}
