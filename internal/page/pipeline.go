package page

import (
	"context"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/plugins"
	"github.com/geocine/folio/internal/template"
)

// ToHTML runs the rendering pipeline of the page for out and returns the final HTML:
// read, front matter, "page:before" hook, parser preparation, templating, markup rendering,
// template post-processing, HTML normalization and "page" hook.
func (p *Page) ToHTML(ctx context.Context, out Output) (string, error) {
	stages := []struct {
		name string
		run  func(context.Context, Output) error
	}{
		{"read", func(context.Context, Output) error { return p.read() }},
		{"front-matter", p.frontMatter},
		{"hook page:before", p.hook(plugins.HookPageBefore)},
		{"prepare", p.prepare},
		{"template", p.renderTemplate},
		{"parse", p.renderMarkup},
		{"post-process", p.postProcess},
		{"normalize", p.normalize},
		{"hook page", p.hook(plugins.HookPage)},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := s.run(ctx, out); err != nil {
			return "", stageError(p.Path, s.name, err)
		}
	}
	return p.Content, nil
}

func stageError(file, stage string, err error) error {
	if e, ok := err.(*errs.Error); ok {
		if e.File == "" {
			c := *e
			c.File = file
			e = &c
		}
		return e.WithStage(stage)
	}
	return errs.Parsing(file, "Error processing page "+file, err).WithStage(stage)
}

func (p *Page) frontMatter(context.Context, Output) error {
	fm, err := SplitFrontMatter(p.Content)
	if err != nil {
		return err
	}
	p.Description = fm.Description()
	p.Content = fm.Body
	return nil
}

func (p *Page) hook(name string) func(context.Context, Output) error {
	return func(ctx context.Context, out Output) error {
		result, err := out.HookPage(ctx, name, p.input())
		if err != nil {
			return err
		}
		if result != "" {
			p.Content = result
		}
		return nil
	}
}

func (p *Page) prepare(context.Context, Output) error {
	content, err := p.Parser.PagePrepare(p.Content)
	if err != nil {
		return err
	}
	p.Content = content
	return nil
}

func (p *Page) renderTemplate(ctx context.Context, out Output) error {
	content, err := out.Template().Render(ctx, p.Content, p.Context(out), template.RenderOptions{
		Path: p.Path,
		Type: p.Type,
	})
	if err != nil {
		return err
	}
	p.Content = content
	return nil
}

func (p *Page) renderMarkup(context.Context, Output) error {
	content, err := p.Parser.Page(p.Content)
	if err != nil {
		return err
	}
	p.Content = content
	return nil
}

func (p *Page) postProcess(_ context.Context, out Output) error {
	content, err := out.Template().PostProcess(p.Content)
	if err != nil {
		return err
	}
	p.Content = content
	return nil
}

func (p *Page) normalize(ctx context.Context, out Output) error {
	content, err := NormalizeHTML(p.Content, PipelineOptions{
		OnDescription: func(description string) {
			if p.Description == "" {
				p.Description = description
			}
		},
		OnRelativeLink: func(href string) string {
			return out.OnRelativeLink(p, href)
		},
		OnImage: func(src string) (string, error) {
			return out.OnOutputImage(ctx, p, src)
		},
		OnOutputSVG: func(svg string) (string, error) {
			return out.OnOutputSVG(ctx, p, svg)
		},
		OnCodeBlock: func(source, lang string) (template.BlockResult, error) {
			return out.Template().ApplyBlock(ctx, "code", template.BlockInput{
				Body:   source,
				Kwargs: map[string]any{"language": lang},
			})
		},
		Annotations: p.book.Glossary().Annotations(),
	})
	if err != nil {
		return err
	}
	p.Content = content
	return nil
}
