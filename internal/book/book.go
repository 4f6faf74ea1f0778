// Package book assembles a book from its files: configuration, ignore rules, languages,
// readme, summary, glossary and the set of pages to render.
package book

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geocine/folio/internal/config"
	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/glossary"
	"github.com/geocine/folio/internal/langs"
	"github.com/geocine/folio/internal/location"
	"github.com/geocine/folio/internal/page"
	"github.com/geocine/folio/internal/parser"
	"github.com/geocine/folio/internal/summary"
	"github.com/geocine/folio/internal/vfs"
)

// State is the step Parse has reached
type State string

const (
	StateUnconfigured      State = "unconfigured"
	StateConfigLoaded      State = "config-loaded"
	StateIgnoreRulesLoaded State = "ignore-rules-loaded"
	StateLanguagesLoaded   State = "languages-loaded"
	StateReadmeLoaded      State = "readme-loaded"
	StateSummaryLoaded     State = "summary-loaded"
	StateGlossaryLoaded    State = "glossary-loaded"
	StatePagesIndexed      State = "pages-indexed"
	StateParsed            State = "parsed"
)

// Parsable is a file with a known parser
type Parsable struct {
	Parser parser.Parser
	// Path is relative to the book root
	Path string
}

// Readme is the readme file of a book with its extracted title and description
type Readme struct {
	Path string
	parser.Readme
}

// Book is a book, or one language of a multilingual book
type Book struct {
	fs       fs.FS
	root     string
	logger   *zap.Logger
	parent   *Book
	language string
	extra    map[string]any

	state    State
	config   *config.Config
	ignore   *ignoreRules
	langs    *langs.Langs
	readme   Readme
	summary  *summary.Summary
	glossary *glossary.Glossary

	pages map[string]*page.Page
	order []string
	books []*Book
}

// Option configures a Book
type Option func(*Book)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Book) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithConfig merges values over the configuration file
func WithConfig(values map[string]any) Option {
	return func(b *Book) {
		b.extra = values
	}
}

// WithParent marks the book as a language of parent; the language is the folder name
func WithParent(parent *Book) Option {
	return func(b *Book) {
		b.parent = parent
	}
}

// New returns an unparsed book stored under root in fsys ("." for the top of the tree)
func New(fsys fs.FS, root string, opts ...Option) *Book {
	b := &Book{
		fs:       fsys,
		root:     strings.TrimSuffix(location.Normalize(root), "/"),
		logger:   zap.NewNop(),
		state:    StateUnconfigured,
		config:   config.Default(),
		ignore:   newIgnoreRules(),
		langs:    langs.Empty(),
		glossary: glossary.Empty(),
		pages:    map[string]*page.Page{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.parent != nil {
		b.language = path.Base(b.root)
	}
	return b
}

// State returns how far Parse went
func (b *Book) State() State { return b.state }

// FS returns the file tree the book is read from
func (b *Book) FS() fs.FS { return b.fs }

// Root returns the content root of the book inside its file tree
func (b *Book) Root() string { return b.root }

// Logger returns the logger of the book
func (b *Book) Logger() *zap.Logger { return b.logger }

func (b *Book) advance(ctx context.Context, s State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.state = s
	b.logger.Debug("Book state changed", zap.String("state", string(s)))
	return nil
}

// Parse loads everything the book is made of. A multilingual book parses each language
// as its own book.
func (b *Book) Parse(ctx context.Context) error {
	if err := b.loadConfig(); err != nil {
		return err
	}
	if err := b.advance(ctx, StateConfigLoaded); err != nil {
		return err
	}

	if err := b.loadIgnore(); err != nil {
		return err
	}
	if err := b.advance(ctx, StateIgnoreRulesLoaded); err != nil {
		return err
	}

	if err := b.loadLangs(); err != nil {
		return err
	}
	if err := b.advance(ctx, StateLanguagesLoaded); err != nil {
		return err
	}

	if b.IsMultilingual() {
		if err := b.parseLanguages(ctx); err != nil {
			return err
		}
		return b.advance(ctx, StateParsed)
	}

	if err := b.loadReadme(); err != nil {
		return err
	}
	if err := b.advance(ctx, StateReadmeLoaded); err != nil {
		return err
	}

	if err := b.loadSummary(); err != nil {
		return err
	}
	if err := b.advance(ctx, StateSummaryLoaded); err != nil {
		return err
	}

	if err := b.loadGlossary(); err != nil {
		return err
	}
	if err := b.advance(ctx, StateGlossaryLoaded); err != nil {
		return err
	}

	if err := b.indexPages(); err != nil {
		return err
	}
	if err := b.advance(ctx, StatePagesIndexed); err != nil {
		return err
	}

	b.logger.Info("Book parsed",
		zap.String("title", b.config.Title()),
		zap.Int("articles", b.summary.Count()),
		zap.Int("pages", len(b.order)))
	return b.advance(ctx, StateParsed)
}

func (b *Book) loadConfig() error {
	var base map[string]any
	if b.parent != nil {
		base = b.parent.config.Dump()
		delete(base, "root")
	}

	cfg, err := config.Load(b.fs, b.root, base)
	if err != nil {
		return err
	}
	if len(b.extra) > 0 {
		values := cfg.Dump()
		for k, v := range b.extra {
			values[k] = v
		}
		if cfg, err = cfg.Replace(values); err != nil {
			return err
		}
	}
	b.config = cfg

	if r := cfg.Root(); r != "" {
		root, err := location.ResolveInRoot(b.root, r)
		if err != nil {
			return errs.Configuration(cfg.Path(), fmt.Sprintf("root %q is outside of the book", r), err)
		}
		b.logger.Debug("Book content root changed", zap.String("root", root))
		b.root = root
	}
	return nil
}

func (b *Book) loadIgnore() error {
	loaded, err := b.ignore.load(b.fs, b.root)
	if err != nil {
		return err
	}
	if len(loaded) > 0 {
		b.logger.Debug("Ignore rules loaded", zap.Strings("files", loaded))
	}
	return nil
}

func (b *Book) loadLangs() error {
	file, ok, err := b.FindParsableFile(b.config.Structure().Langs)
	if err != nil || !ok {
		return err
	}

	src, err := b.ReadFile(file.Path)
	if err != nil {
		return err
	}
	items, err := file.Parser.Langs(src)
	if err != nil {
		return errs.Parsing(file.Path, "failed to parse languages", err)
	}

	l := langs.New(file.Path, items)
	if l.Count() > 0 && b.IsLanguageBook() {
		return errs.Parsing(file.Path, "A multilingual book as a language book is forbidden", nil)
	}
	b.langs = l
	return nil
}

func (b *Book) parseLanguages(ctx context.Context) error {
	for _, lang := range b.langs.List() {
		root, err := b.Resolve(lang.Folder)
		if err != nil {
			return err
		}
		child := New(b.fs, root,
			WithParent(b),
			WithConfig(b.extra),
			WithLogger(b.logger.With(zap.String("language", lang.ID()))))
		b.logger.Info("Parsing language", zap.String("language", lang.ID()), zap.String("title", lang.Title))
		if err := child.Parse(ctx); err != nil {
			return err
		}
		b.books = append(b.books, child)
	}
	return nil
}

func (b *Book) loadReadme() error {
	name := b.config.Structure().Readme
	file, ok, err := b.FindParsableFile(name)
	if err != nil {
		return err
	}
	if !ok {
		return errs.FileNotFound(name)
	}

	src, err := b.ReadFile(file.Path)
	if err != nil {
		return err
	}
	r, err := file.Parser.Readme(src)
	if err != nil {
		return errs.Parsing(file.Path, "failed to parse readme", err)
	}
	b.readme = Readme{Path: file.Path, Readme: r}

	if b.config.Title() == "" && r.Title != "" {
		if b.config, err = b.config.With("title", r.Title); err != nil {
			return err
		}
	}
	if b.config.Description() == "" && r.Description != "" {
		if b.config, err = b.config.With("description", r.Description); err != nil {
			return err
		}
	}
	return nil
}

func (b *Book) loadSummary() error {
	var (
		spec parser.SummarySpec
		file = b.config.Structure().Summary
	)

	found, ok, err := b.FindParsableFile(file)
	if err != nil {
		return err
	}
	if ok {
		src, err := b.ReadFile(found.Path)
		if err != nil {
			return err
		}
		if spec, err = found.Parser.Summary(src); err != nil {
			return errs.Parsing(found.Path, "failed to parse summary", err)
		}
		file = found.Path
	} else {
		b.logger.Warn("No summary file in this book", zap.String("file", file))
		file = ""
	}

	s, err := summary.Build(file, spec, b.readme.Path)
	if err != nil {
		return errs.Parsing(file, "failed to build summary", err)
	}
	b.summary = s
	return nil
}

func (b *Book) loadGlossary() error {
	found, ok, err := b.FindParsableFile(b.config.Structure().Glossary)
	if err != nil || !ok {
		return err
	}

	src, err := b.ReadFile(found.Path)
	if err != nil {
		return err
	}
	items, err := found.Parser.Glossary(src)
	if err != nil {
		return errs.Parsing(found.Path, "failed to parse glossary", err)
	}
	b.glossary = glossary.New(found.Path, items, b.logger)
	return nil
}

func (b *Book) indexPages() error {
	var files []string
	b.summary.Walk(func(a *summary.Article) bool {
		if a.HasLocation() && !a.IsExternal() && a.Path != "" {
			files = append(files, a.Path)
		}
		return true
	})
	if b.glossary.Exists() {
		files = append(files, b.glossary.Path())
	}

	for _, file := range files {
		if _, ok := parser.ForFile(file); !ok {
			b.logger.Debug("Skipping article without parser", zap.String("file", file))
			continue
		}
		if _, err := b.StatFile(file); err != nil {
			if errs.IsKind(err, errs.KindFileOutOfScope) {
				return err
			}
			b.logger.Warn("Page cannot be parsed", zap.String("file", file), zap.Error(err))
			continue
		}
		if _, err := b.AddPage(file); err != nil {
			return err
		}
	}
	return nil
}

// Resolve joins parts onto the book root. The result must stay inside this book or the
// book it is a language of.
func (b *Book) Resolve(parts ...string) (string, error) {
	resolved, err := location.ResolveInRoot(b.root, parts...)
	if err == nil {
		return resolved, nil
	}
	if b.parent == nil {
		return "", err
	}

	// "../GLOSSARY.md" from a language may reach the files shared by every language
	full := location.Normalize(path.Join(b.root, joinParts(parts)))
	for p := b.parent; p != nil; p = p.parent {
		if location.IsInRoot(p.root, full) {
			return strings.TrimSuffix(full, "/"), nil
		}
	}
	return "", err
}

func joinParts(parts []string) string {
	joined := ""
	for _, p := range parts {
		p = strings.ReplaceAll(p, "\\", "/")
		switch {
		case strings.HasPrefix(p, "/"):
			joined = p[1:]
		case joined == "":
			joined = p
		default:
			joined = path.Join(joined, p)
		}
	}
	return joined
}

// FindParsableFile looks for name with its own extension first, then with every parser
// extension. Names are compared case-insensitively; ignored files are never returned.
func (b *Book) FindParsableFile(name string) (Parsable, bool, error) {
	name = location.Normalize(name)
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)

	exts := parser.Extensions()
	if _, ok := parser.Get(ext); ok && ext != "" {
		exts = append([]string{strings.ToLower(ext)}, exts...)
	}

	for _, e := range exts {
		p, ok := parser.Get(e)
		if !ok {
			continue
		}
		candidate := base + e
		full, err := b.Resolve(candidate)
		if err != nil {
			return Parsable{}, false, err
		}
		real, ok := vfs.FindFile(b.fs, path.Dir(full), path.Base(full))
		if !ok {
			continue
		}
		rel := path.Join(path.Dir(candidate), real)
		if b.IsFileIgnored(rel) {
			continue
		}
		return Parsable{Parser: p, Path: rel}, true, nil
	}
	return Parsable{}, false, nil
}

// AddPage registers the page for file; registering twice returns the first page
func (b *Book) AddPage(file string) (*page.Page, error) {
	file = location.Normalize(file)
	if p, ok := b.pages[file]; ok {
		return p, nil
	}

	raw, err := b.Resolve(file)
	if err != nil {
		return nil, err
	}
	p, err := page.New(b, file, raw)
	if err != nil {
		return nil, err
	}
	b.pages[file] = p
	b.order = append(b.order, file)
	return p, nil
}

// Page returns the registered page for file
func (b *Book) Page(file string) (*page.Page, bool) {
	p, ok := b.pages[location.Normalize(file)]
	return p, ok
}

// HasPage reports whether file is a registered page
func (b *Book) HasPage(file string) bool {
	_, ok := b.Page(file)
	return ok
}

// Pages returns the registered pages in registration order
func (b *Book) Pages() []*page.Page {
	out := make([]*page.Page, 0, len(b.order))
	for _, file := range b.order {
		out = append(out, b.pages[file])
	}
	return out
}

func (b *Book) open(name string) (string, error) {
	if b.IsFileIgnored(name) {
		return "", errs.FileNotFound(name)
	}
	return b.Resolve(name)
}

// ReadFile returns the content of a book file; ignored files do not exist
func (b *Book) ReadFile(name string) (string, error) {
	full, err := b.open(name)
	if err != nil {
		return "", err
	}
	data, err := fs.ReadFile(b.fs, full)
	if err != nil {
		if vfs.IsNotExist(err) {
			return "", errs.FileNotFound(name)
		}
		return "", errs.Parsing(name, "failed to read file", err)
	}
	return string(data), nil
}

// ReadBytes returns the raw content of a book file
func (b *Book) ReadBytes(name string) ([]byte, error) {
	full, err := b.open(name)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(b.fs, full)
	if err != nil {
		if vfs.IsNotExist(err) {
			return nil, errs.FileNotFound(name)
		}
		return nil, errs.Parsing(name, "failed to read file", err)
	}
	return data, nil
}

// StatFile describes a book file; ignored files do not exist
func (b *Book) StatFile(name string) (fs.FileInfo, error) {
	full, err := b.open(name)
	if err != nil {
		return nil, err
	}
	info, err := fs.Stat(b.fs, full)
	if err != nil {
		if vfs.IsNotExist(err) {
			return nil, errs.FileNotFound(name)
		}
		return nil, errs.Parsing(name, "failed to stat file", err)
	}
	return info, nil
}

// ModTime returns the modification time of a book file
func (b *Book) ModTime(name string) (time.Time, error) {
	info, err := b.StatFile(name)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ListFiles returns every file of the book that is not ignored, in natural order
func (b *Book) ListFiles() ([]string, error) {
	files, err := vfs.ListAllFiles(b.fs, b.root, b.IsFileIgnored)
	if err != nil {
		return nil, errs.Output(b.root, "failed to list book files", err)
	}
	return files, nil
}

// IsFileIgnored reports whether name (relative to the book root, directories ending with "/")
// matches the ignore rules of this book or of the book it is a language of
func (b *Book) IsFileIgnored(name string) bool {
	if b.ignore.match(name) {
		return true
	}
	if b.parent == nil {
		return false
	}
	prefix := strings.TrimPrefix(b.root, b.parent.root+"/")
	if b.parent.root == "." {
		prefix = b.root
	}
	return b.parent.IsFileIgnored(prefix + "/" + strings.TrimPrefix(name, "/"))
}

// IsMultilingual reports whether the book is split in languages
func (b *Book) IsMultilingual() bool { return b.langs.Count() > 0 }

// IsLanguageBook reports whether the book is a language of another book
func (b *Book) IsLanguageBook() bool { return b.parent != nil }

// Parent returns the book this book is a language of
func (b *Book) Parent() *Book { return b.parent }

// Language returns the language code: the folder of a language book, otherwise the
// configured language
func (b *Book) Language() string {
	if b.language != "" {
		return b.language
	}
	return b.config.Language()
}

// Books returns the parsed language books
func (b *Book) Books() []*Book { return b.books }

// IsInBook reports whether name, relative to the book root, stays inside the book
func (b *Book) IsInBook(name string) bool {
	return location.IsInRoot(".", name)
}

// IsInLanguageBook reports whether name belongs to one of the languages
func (b *Book) IsInLanguageBook(name string) bool {
	name = location.Normalize(name)
	for _, lang := range b.langs.List() {
		if name == lang.Folder || strings.HasPrefix(name, lang.Folder+"/") {
			return true
		}
	}
	return false
}

// Config returns the current configuration snapshot
func (b *Book) Config() *config.Config { return b.config }

// SetConfig replaces the configuration, e.g. with the result of the config hook
func (b *Book) SetConfig(cfg *config.Config) { b.config = cfg }

// Summary returns the table of contents; nil for the top of a multilingual book
func (b *Book) Summary() *summary.Summary { return b.summary }

// Glossary returns the glossary; empty when the book has none
func (b *Book) Glossary() *glossary.Glossary { return b.glossary }

// Langs returns the languages; empty for a single-language book
func (b *Book) Langs() *langs.Langs { return b.langs }

// Readme returns the readme file with its title and description
func (b *Book) Readme() Readme { return b.readme }

// Context returns the "book" template context: the configured variables and the language
func (b *Book) Context() map[string]any {
	ctx := map[string]any{}
	for k, v := range b.config.Variables() {
		ctx[k] = v
	}
	ctx["language"] = b.Language()
	return ctx
}

// RenderInline renders a fragment of markup of the given type ("markdown", ".adoc")
func (b *Book) RenderInline(typ, src string) (string, error) {
	p, ok := parser.Get(typ)
	if !ok {
		return "", errs.Parsing("", fmt.Sprintf("unknown markup type %q", typ), nil)
	}
	out, err := p.Inline(src)
	if err != nil {
		return "", errs.Parsing("", "failed to render inline markup", err)
	}
	return out, nil
}

// RenderBlock renders markup of the given type as a whole block
func (b *Book) RenderBlock(typ, src string) (string, error) {
	p, ok := parser.Get(typ)
	if !ok {
		return "", errs.Parsing("", fmt.Sprintf("unknown markup type %q", typ), nil)
	}
	out, err := p.Page(src)
	if err != nil {
		return "", errs.Parsing("", "failed to render markup", err)
	}
	return out, nil
}
