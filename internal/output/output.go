// Package output generates a parsed book in one of the output formats.
package output

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/geocine/folio/internal/book"
	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/location"
	"github.com/geocine/folio/internal/page"
	"github.com/geocine/folio/internal/plugins"
	"github.com/geocine/folio/internal/search"
	"github.com/geocine/folio/internal/template"
	"github.com/geocine/folio/internal/vfs"
)

// Format names
const (
	Website = "website"
	JSON    = "json"
	Ebook   = "ebook"
)

// DefaultRoot is the output folder, relative to the book, when none is given
const DefaultRoot = "_book"

// Options of a generation
type Options struct {
	// Root is the output folder on disk; empty means "_book" inside the book
	Root string
	// DirectoryIndex turns links to "dir/index.html" into "dir/"
	DirectoryIndex bool
	// KeepGoing renders every page even when some fail; the errors are returned together
	KeepGoing bool
	Format    string
	// Theme holds the default layouts and assets under "frontend/"
	Theme fs.FS
}

// DefaultOptions generates a website with directory indexes
func DefaultOptions() Options {
	return Options{Format: Website, DirectoryIndex: true}
}

// Format is what differs between the outputs: how assets and pages are written
type Format interface {
	Name() string
	Prepare(ctx context.Context, o *Output) error
	OnAsset(ctx context.Context, o *Output, file string) error
	OnPage(ctx context.Context, o *Output, p *page.Page) error
	Finish(ctx context.Context, o *Output) error
}

// NewFormat returns the format called name
func NewFormat(name string) (Format, error) {
	switch name {
	case "", Website:
		return &website{}, nil
	case JSON:
		return &jsonFormat{}, nil
	case Ebook:
		return &ebook{}, nil
	}
	return nil, errs.Configuration("", fmt.Sprintf("unknown output format %q", name), nil)
}

// Output generates one book into a sink
type Output struct {
	book   *book.Book
	opts   Options
	format Format
	sink   FileSink
	logger *zap.Logger
	parent *Output

	plugins   *plugins.Registry
	engine    *template.Engine
	templates *TemplateSource
	git       *Git
	inliner   *AssetInliner
	ignore    gitignore.Matcher
}

// New creates the output of a parsed book. Without a sink the files are written to opts.Root.
func New(b *book.Book, sink FileSink, opts Options) (*Output, error) {
	format, err := NewFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if format.Name() == Ebook {
		opts.DirectoryIndex = false
	}
	if sink == nil {
		sink = NewFolder(rootFolder(b, opts.Root))
	}
	o := newOutput(b, sink, format, opts, b.Logger().With(zap.String("output", format.Name())))
	o.git = NewGit(o.logger)
	return o, nil
}

func newOutput(b *book.Book, sink FileSink, format Format, opts Options, logger *zap.Logger) *Output {
	o := &Output{
		book:      b,
		opts:      opts,
		format:    format,
		sink:      sink,
		logger:    logger,
		plugins:   plugins.NewRegistry(logger),
		templates: NewTemplateSource(b.FS(), b.Root(), opts.Theme),
	}
	o.plugins.Register(search.Name, search.New)
	if format.Name() == Ebook {
		o.inliner = NewAssetInliner(sink, logger)
	}
	return o
}

// rootFolder is the output folder on disk
func rootFolder(b *book.Book, root string) string {
	if root != "" {
		return root
	}
	if d, ok := b.FS().(*vfs.Dir); ok {
		return d.Abs(path.Join(b.Root(), DefaultRoot))
	}
	return DefaultRoot
}

// bookDir is the book root on disk, "" for books not read from disk
func (o *Output) bookDir() string {
	if d, ok := o.book.FS().(*vfs.Dir); ok {
		return d.Abs(o.book.Root())
	}
	return ""
}

func (o *Output) Name() string { return o.format.Name() }

func (o *Output) Book() *book.Book { return o.book }

func (o *Output) Sink() FileSink { return o.sink }

func (o *Output) Options() Options { return o.opts }

func (o *Output) Logger() *zap.Logger { return o.logger }

func (o *Output) Template() *template.Engine { return o.engine }

// Templates returns the layouts of the output
func (o *Output) Templates() *TemplateSource { return o.templates }

// WriteFile writes a generated file relative to the output root
func (o *Output) WriteFile(name string, data []byte) error {
	return o.sink.WriteFile(name, data)
}

// HookPage runs a page hook of the plugins
func (o *Output) HookPage(ctx context.Context, name string, in plugins.PageInput) (string, error) {
	return o.plugins.HookPage(ctx, name, in)
}

// Generate writes the whole book: plugins, configuration hook, assets, pages, languages
func (o *Output) Generate(ctx context.Context) (err error) {
	start := time.Now()
	if o.parent == nil {
		defer func() {
			err = multierr.Append(err, o.git.Close())
		}()
	}

	if err := o.setup(); err != nil {
		return err
	}
	if err := o.hookConfig(ctx); err != nil {
		return err
	}
	if err := o.plugins.HookLifecycle(ctx, plugins.HookInit); err != nil {
		return err
	}

	o.logger.Info("Preparing the generation")
	if err := o.prepare(ctx); err != nil {
		return err
	}

	files, err := o.book.ListFiles()
	if err != nil {
		return err
	}
	var assets, pages []string
	for _, f := range files {
		if o.isIgnored(f) {
			continue
		}
		if o.book.IsMultilingual() && o.book.IsInLanguageBook(f) {
			continue
		}
		if o.book.HasPage(f) {
			pages = append(pages, f)
		} else {
			assets = append(assets, f)
		}
	}

	o.logger.Info("Generating assets", zap.Int("count", len(assets)))
	for _, f := range assets {
		if err := o.format.OnAsset(ctx, o, f); err != nil {
			return err
		}
	}

	var pageErrs error
	o.logger.Info("Generating pages", zap.Int("count", len(pages)))
	for _, f := range pages {
		p, _ := o.book.Page(f)
		o.logger.Debug("Generating page", zap.String("file", p.Path))
		if err := o.format.OnPage(ctx, o, p); err != nil {
			if !o.opts.KeepGoing || ctx.Err() != nil || errs.IsKind(err, errs.KindFileOutOfScope) {
				return err
			}
			o.logger.Error("Page failed", zap.String("file", p.Path), zap.Error(err))
			pageErrs = multierr.Append(pageErrs, err)
		}
	}

	for _, sub := range o.book.Books() {
		if err := o.generateLanguage(ctx, sub); err != nil {
			if !o.opts.KeepGoing || ctx.Err() != nil {
				return err
			}
			pageErrs = multierr.Append(pageErrs, err)
		}
	}

	if err := o.plugins.HookLifecycle(ctx, plugins.HookFinishBefore); err != nil {
		return err
	}
	if err := o.format.Finish(ctx, o); err != nil {
		return err
	}
	if err := o.plugins.HookLifecycle(ctx, plugins.HookFinish); err != nil {
		return err
	}

	if pageErrs != nil {
		o.logger.Warn("Generation finished with errors",
			zap.Int("errors", len(multierr.Errors(pageErrs))), zap.Duration("duration", time.Since(start)))
		return pageErrs
	}
	o.logger.Info("Generation finished with success", zap.Duration("duration", time.Since(start)))
	return nil
}

// setup loads the plugins and registers their filters and blocks
func (o *Output) setup() error {
	o.engine = template.New(&conrefLoader{book: o.book, git: o.git}, o.logger)

	err := o.plugins.Load(o.book.Config(), plugins.Env{
		Host:   o,
		Root:   o.bookDir(),
		Book:   o.book.Context,
		Config: func() map[string]any { return o.book.Config().Dump() },
		Logger: o.logger,
	})
	if err != nil {
		return err
	}

	for name, fn := range o.plugins.Filters() {
		o.engine.AddFilter(name, fn)
	}
	for name, b := range o.plugins.Blocks() {
		if err := o.engine.AddBlock(name, b); err != nil {
			return errs.Plugin(name, "invalid block", err)
		}
	}
	return nil
}

func (o *Output) hookConfig(ctx context.Context) error {
	values, err := o.plugins.HookConfig(ctx, o.book.Config().Dump())
	if err != nil {
		return err
	}
	cfg, err := o.book.Config().Replace(values)
	if err != nil {
		return err
	}
	o.book.SetConfig(cfg)
	return nil
}

// prepare cleans the output folder and ignores the files that are not part of the content
func (o *Output) prepare(ctx context.Context) error {
	ignores := []string{"/.gitignore", "/.ignore", "/.bookignore", "node_modules", "/" + LayoutsDir + "/"}
	if p := o.book.Config().Path(); p != "" {
		ignores = append(ignores, "/"+p)
	}
	if s := o.book.Summary(); s != nil && s.Path() != "" {
		ignores = append(ignores, "/"+s.Path())
	}
	if p := o.book.Langs().Path(); p != "" {
		ignores = append(ignores, "/"+p)
	}
	if rel := o.relativeRoot(); rel != "" {
		ignores = append(ignores, "/"+rel+"/")
	}

	patterns := make([]gitignore.Pattern, 0, len(ignores))
	for _, line := range ignores {
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	o.ignore = gitignore.NewMatcher(patterns)

	if o.parent == nil {
		if err := o.sink.Clean(); err != nil {
			return err
		}
	}
	return o.format.Prepare(ctx, o)
}

// relativeRoot is the output folder relative to the book, when it is inside the book
func (o *Output) relativeRoot() string {
	sink, ok := o.sink.(*Sink)
	if !ok {
		return ""
	}
	out, ok := sink.FS().(*vfs.Dir)
	bookDir := o.bookDir()
	if !ok || bookDir == "" {
		return ""
	}
	a, err1 := filepath.Abs(bookDir)
	b, err2 := filepath.Abs(out.Abs(sink.Root()))
	if err1 != nil || err2 != nil {
		return ""
	}
	rel, err := filepath.Rel(a, b)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

func (o *Output) isIgnored(file string) bool {
	return o.ignore != nil && o.ignore.Match(strings.Split(file, "/"), false)
}

// generateLanguage generates a language book into its own folder of the output
func (o *Output) generateLanguage(ctx context.Context, sub *book.Book) error {
	lang := sub.Language()
	o.logger.Info("Generating language", zap.String("language", lang))

	format, err := NewFormat(o.format.Name())
	if err != nil {
		return err
	}
	child := newOutput(sub, o.sink.Sub(lang), format, o.opts, o.logger.With(zap.String("language", lang)))
	child.parent = o
	child.git = o.git
	return child.Generate(ctx)
}

// OutputPath returns the generated file of a book file: READMEs become index files
func (o *Output) OutputPath(file, ext string) string {
	if ext == "" {
		ext = ".html"
	}
	dir := path.Dir(file)
	name := strings.TrimSuffix(path.Base(file), path.Ext(file))

	readme := o.book.Readme().Path
	if name == "README" || (readme != "" && location.AreIdenticalPaths(file, readme)) {
		return path.Join(dir, "index"+ext)
	}
	return location.SetExtension(file, ext)
}

// ToURL returns the link to the generated file of a book file
func (o *Output) ToURL(file string) string {
	href := o.OutputPath(file, "")
	if o.opts.DirectoryIndex && path.Base(href) == "index.html" {
		dir := path.Dir(href)
		if dir == "." {
			return "./"
		}
		return location.Normalize(dir + "/")
	}
	return location.Normalize(href)
}

// OnRelativeLink rewrites a link between two pages to the generated file
func (o *Output) OnRelativeLink(p *page.Page, href string) string {
	to, ok := p.FollowPage(href)
	if !ok {
		return href
	}
	return o.ToURL(p.Relative(to.Path))
}

// OnOutputImage returns the src of an image of a page in the generated file
func (o *Output) OnOutputImage(ctx context.Context, p *page.Page, src string) (string, error) {
	if location.IsDataURI(src) {
		return src, nil
	}
	if o.inliner == nil {
		if location.IsExternal(src) {
			return src, nil
		}
		return p.Relative(p.ResolveLocal(src)), nil
	}

	if location.IsExternal(src) {
		file, err := o.inliner.Download(ctx, src)
		if err != nil {
			return "", err
		}
		src = "/" + file
	}
	src = p.ResolveLocal(src)
	if strings.ToLower(path.Ext(src)) != ".svg" {
		return p.Relative(src), nil
	}
	file, err := o.inliner.ConvertSVGFile(src)
	if err != nil {
		return "", err
	}
	return p.Relative("/" + file), nil
}

// OnOutputSVG writes an inline svg to a file when the output can't show inline svgs
func (o *Output) OnOutputSVG(_ context.Context, p *page.Page, svg string) (string, error) {
	if o.inliner == nil {
		return "", nil
	}
	file, err := o.inliner.ConvertSVGBuffer(svg)
	if err != nil {
		return "", err
	}
	return p.Relative("/" + file), nil
}

// copyAsset copies a book file as is
func (o *Output) copyAsset(file string) error {
	return o.sink.CopyFile(file, o.book.FS(), path.Join(o.book.Root(), file))
}

// renderContext is the context of the layouts: the page context and the output
func (o *Output) renderContext(ctx map[string]any, self string) map[string]any {
	ctx["template"] = map[string]any{"self": self}
	ctx["options"] = map[string]any{
		"format":         o.format.Name(),
		"directoryIndex": o.opts.DirectoryIndex,
	}
	ctx["output"] = map[string]any{"name": o.format.Name()}
	return ctx
}

// bookContext adds the book variables to the context of a layout rendered outside of a page
func (o *Output) bookContext(ctx map[string]any, self string) map[string]any {
	for k, v := range o.book.Context() {
		if _, ok := ctx[k]; !ok {
			ctx[k] = v
		}
	}
	return o.renderContext(ctx, self)
}

// helpers are the layout helpers for the file being rendered, p is nil outside of pages
func (o *Output) helpers(p *page.Page) map[string]any {
	resolveForPage := func(href string) string {
		if p == nil {
			return href
		}
		return o.OnRelativeLink(p, p.Relative(href))
	}
	return map[string]any{
		"resolveFile": func(href string) string {
			return location.Normalize(resolveForPage(href))
		},
		"resolveAsset": func(href string) string {
			href = path.Join("gitbook", href)
			if p != nil {
				href = resolveForPage("/" + href)
			}
			if o.book.IsLanguageBook() {
				href = "../" + href
			}
			return href
		},
		"contentURL": func(file string) string {
			return o.ToURL(file)
		},
		"fileExists": func(file string) bool {
			return o.sink.Exists(file)
		},
		"t": func(key string) string {
			return translate(o.book.Language(), key)
		},
	}
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
