// Package template renders the templating directives embedded in book content.
//
// Templates use the Handlebars syntax of raymond. Filters are helpers ({{upper book.title}}),
// blocks are block helpers ({{#code language="js"}}...{{/code}}) and {{include "file"}}
// inserts another template resolved through a Loader.
package template

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/parser"
)

const maxIncludeDepth = 10

// Source is a template loaded by a Loader
type Source struct {
	// Path identifies the template; nested includes are resolved from it
	Path    string
	Content string
}

// Loader reads the templates included from other templates
type Loader interface {
	Load(ctx context.Context, from, name string) (Source, error)
}

// RenderOptions describe the content being rendered
type RenderOptions struct {
	// Path of the rendered file, empty for inline content
	Path string
	// Type is the parser name of the content, it selects the shortcuts to expand
	Type string
}

type shortcut struct {
	Shortcut
	block string
}

// Engine renders templates. Blocks and filters are registered before rendering starts.
type Engine struct {
	logger *zap.Logger
	loader Loader

	filters   map[string]any
	blocks    map[string]Block
	shortcuts []shortcut

	mu       sync.Mutex
	deferred map[string]string
	nextID   int
}

// New creates an engine with the default blocks and filters
func New(loader Loader, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		logger:   logger,
		loader:   loader,
		filters:  map[string]any{},
		blocks:   map[string]Block{},
		deferred: map[string]string{},
	}
	for name, fn := range defaultFilters() {
		e.AddFilter(name, fn)
	}
	for name, b := range defaultBlocks() {
		e.AddBlock(name, b)
	}
	return e
}

// AddFilter registers fn as helper name. An existing filter is kept and false is returned.
func (e *Engine) AddFilter(name string, fn any) bool {
	if _, ok := e.filters[name]; ok {
		e.logger.Error("Conflict in filters, filter is already set", zap.String("filter", name))
		return false
	}
	if err := checkFilter(fn); err != nil {
		e.logger.Error("Invalid filter", zap.String("filter", name), zap.Error(err))
		return false
	}
	e.logger.Debug("Add filter", zap.String("filter", name))
	e.filters[name] = fn
	return true
}

// HasBlock reports whether a block is registered under name
func (e *Engine) HasBlock(name string) bool {
	_, ok := e.blocks[name]
	return ok
}

// RemoveBlock disables a block and its shortcuts
func (e *Engine) RemoveBlock(name string) {
	if !e.HasBlock(name) {
		return
	}
	delete(e.blocks, name)

	kept := e.shortcuts[:0]
	for _, s := range e.shortcuts {
		if s.block != name {
			kept = append(kept, s)
		}
	}
	e.shortcuts = kept
}

// AddBlock registers a block, replacing an existing one of the same name
func (e *Engine) AddBlock(name string, b Block) error {
	if b.Process == nil {
		return fmt.Errorf("invalid block %q, it should have a process function", name)
	}
	if _, isDefault := defaultBlocks()[name]; e.HasBlock(name) && !isDefault {
		e.logger.Warn("Conflict in blocks, block is already defined", zap.String("block", name))
	}
	e.RemoveBlock(name)

	e.logger.Debug("Add block", zap.String("block", name))
	e.blocks[name] = b
	for _, s := range b.Shortcuts {
		e.logger.Debug("Add template shortcut",
			zap.String("block", name),
			zap.String("start", s.Start),
			zap.Strings("parsers", s.Parsers))
		e.shortcuts = append(e.shortcuts, shortcut{Shortcut: s, block: name})
	}
	return nil
}

// ApplyBlock runs a block directly, without deferring its result
func (e *Engine) ApplyBlock(ctx context.Context, name string, in BlockInput) (BlockResult, error) {
	b, ok := e.blocks[name]
	if !ok {
		return BlockResult{}, fmt.Errorf("block not found %q", name)
	}
	if in.Kwargs == nil {
		in.Kwargs = map[string]any{}
	}
	return b.Process(ctx, in)
}

// ApplyShortcuts expands the shortcuts registered for parser type into block tags
func (e *Engine) ApplyShortcuts(typ, content string) string {
	for _, s := range e.shortcuts {
		if !contains(s.Parsers, typ) {
			continue
		}
		re := regexp.MustCompile(regexp.QuoteMeta(s.Start) + `([\s\S]*?[^\$])` + regexp.QuoteMeta(s.End))
		content = re.ReplaceAllString(content, "{{#"+s.block+"}}${1}{{/"+s.block+"}}")
	}
	return content
}

// Render expands the directives of content against data. Deferred blocks are left as markers
// that PostProcess resolves.
func (e *Engine) Render(ctx context.Context, content string, data map[string]any, opts RenderOptions) (string, error) {
	name := opts.Path
	if name == "" {
		name = "<inline>"
	}
	out, err := e.render(ctx, e.ApplyShortcuts(opts.Type, content), data, opts.Path, 0)
	if err != nil {
		return "", errs.Template(name, err).WithStage("template")
	}
	return out, nil
}

// RenderString renders then post-processes content
func (e *Engine) RenderString(ctx context.Context, content string, data map[string]any, opts RenderOptions) (string, error) {
	out, err := e.Render(ctx, content, data, opts)
	if err != nil {
		return "", err
	}
	return e.PostProcess(out)
}

func (e *Engine) render(ctx context.Context, content string, data map[string]any, from string, depth int) (out string, err error) {
	tpl, err := raymond.Parse(content)
	if err != nil {
		return "", err
	}

	var helperErr error
	fail := func(err error) raymond.SafeString {
		if helperErr == nil {
			helperErr = err
		}
		return ""
	}

	helpers := make(map[string]any, len(e.filters)+len(e.blocks)+1)
	for name, fn := range e.filters {
		helpers[name] = fn
	}
	for _, name := range e.blockNames() {
		name := name
		helpers[name] = func(options *raymond.Options) raymond.SafeString {
			res, err := e.ApplyBlock(ctx, name, BlockInput{
				Body:   options.Fn(),
				Kwargs: options.Hash(),
			})
			if err != nil {
				return fail(fmt.Errorf("block %q: %w", name, err))
			}
			return raymond.SafeString(e.processBlock(res))
		}
	}
	helpers["include"] = func(target string) raymond.SafeString {
		if e.loader == nil {
			return fail(fmt.Errorf("cannot include %q: no template loader", target))
		}
		if depth >= maxIncludeDepth {
			return fail(fmt.Errorf("cannot include %q: too many nested includes", target))
		}
		src, err := e.loader.Load(ctx, from, target)
		if err != nil {
			return fail(err)
		}
		body := e.ApplyShortcuts(parserType(src.Path), src.Content)
		out, err := e.render(ctx, body, data, src.Path, depth+1)
		if err != nil {
			return fail(fmt.Errorf("include %q: %w", target, err))
		}
		return raymond.SafeString(out)
	}
	tpl.RegisterHelpers(helpers)

	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok {
				panic(r)
			}
			err = perr
		}
	}()

	out, err = tpl.Exec(data)
	if err != nil {
		return "", err
	}
	if helperErr != nil {
		return "", helperErr
	}
	return out, nil
}

// processBlock returns what replaces a block in the rendered template
func (e *Engine) processBlock(res BlockResult) string {
	if res.Parse {
		return res.Body
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	body := res.Body
	if res.Text {
		body = html.EscapeString(body)
	}

	e.nextID++
	id := strconv.Itoa(e.nextID)
	e.deferred[id] = body
	return marker(id)
}

// takeDeferred returns and forgets the body of a deferred block
func (e *Engine) takeDeferred(id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	body, ok := e.deferred[id]
	if ok {
		delete(e.deferred, id)
	}
	return body, ok
}

func (e *Engine) blockNames() []string {
	names := make([]string, 0, len(e.blocks))
	for name := range e.blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parserType(file string) string {
	if p, ok := parser.Get(path.Ext(file)); ok {
		return p.Name()
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
