package page

import (
	"time"

	"github.com/geocine/folio/internal/config"
)

// Context returns the template context of the page, also used by the json output.
// Its keys are file, page, gitbook, book, languages, summary, glossary, config and output.
func (p *Page) Context(out Output) map[string]any {
	pageCtx := map[string]any{
		"title":       nil,
		"description": p.Description,
		"next":        nil,
		"previous":    nil,
		"level":       nil,
		"depth":       0,
		"content":     p.Content,
		"dir":         nil,
	}
	if dir := p.Direction(); dir != "" {
		pageCtx["dir"] = dir
	}

	s := p.book.Summary()
	if a := p.Article(); a != nil {
		pageCtx["title"] = a.Title
		pageCtx["level"] = a.Level
		pageCtx["depth"] = a.Depth()
		if next := s.Next(a); next != nil {
			pageCtx["next"] = s.ArticleContext(next)
		}
		if prev := s.Prev(a); prev != nil {
			pageCtx["previous"] = s.ArticleContext(prev)
		}
	}

	ctx := map[string]any{
		"file": map[string]any{
			"path":  p.Path,
			"mtime": p.MTime,
			"type":  p.Type,
		},
		"page":    pageCtx,
		"gitbook": GeneratorContext(),
		"config":  p.book.Config().Dump(),
	}
	for k, v := range p.book.Context() {
		ctx[k] = v
	}
	ctx["languages"] = p.book.Langs().Context()
	ctx["summary"] = p.book.Summary().Context()
	ctx["glossary"] = p.book.Glossary().Context()
	if out != nil {
		ctx["output"] = map[string]any{"name": out.Name()}
	}
	return ctx
}

var startedAt = time.Now()

// GeneratorContext describes the generator: {"version", "time"}
func GeneratorContext() map[string]any {
	return map[string]any{
		"version": config.Version,
		"time":    startedAt,
	}
}
