package output

import (
	"context"
	"path"

	"go.uber.org/zap"

	"github.com/geocine/folio/internal/page"
)

// AssetsFolder receives the theme assets in the generated site
const AssetsFolder = "gitbook"

// website renders every page with the "website/page.html" layout
type website struct{}

func (w *website) Name() string { return Website }

// Prepare copies the theme assets, once for all the languages
func (w *website) Prepare(_ context.Context, o *Output) error {
	return copyThemeAssets(o, Website)
}

func copyThemeAssets(o *Output, format string) error {
	if o.book.IsLanguageBook() {
		return nil
	}
	files, dir, err := o.templates.Assets(format)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := o.sink.CopyFile(path.Join(AssetsFolder, f), o.templates.Theme(), path.Join(dir, f)); err != nil {
			return err
		}
	}
	o.logger.Debug("Theme assets copied", zap.Int("count", len(files)))
	return nil
}

func (w *website) OnAsset(_ context.Context, o *Output, file string) error {
	return o.copyAsset(file)
}

func (w *website) OnPage(ctx context.Context, o *Output, p *page.Page) error {
	return renderPage(ctx, o, p, "website/page.html", o.OutputPath(p.Path, ""))
}

// renderPage renders p to HTML, then with a layout, and writes the result to file
func renderPage(ctx context.Context, o *Output, p *page.Page, layout, file string) error {
	if _, err := p.ToHTML(ctx, o); err != nil {
		return err
	}
	data := o.renderContext(p.Context(o), layout)
	out, err := o.templates.Render(layout, data, o.helpers(p))
	if err != nil {
		return err
	}
	return o.WriteFile(file, []byte(out))
}

// Finish writes the index of the languages of a multilingual book
func (w *website) Finish(_ context.Context, o *Output) error {
	if !o.book.IsMultilingual() {
		return nil
	}
	return renderLanguages(o, "website/languages.html", "index.html")
}

func renderLanguages(o *Output, layout, file string) error {
	var list []any
	for _, lang := range o.book.Langs().List() {
		list = append(list, map[string]any{
			"id":    lang.ID(),
			"title": lang.Title,
			"url":   o.ToURL(path.Join(lang.ID(), "README.md")),
		})
	}
	data := o.bookContext(map[string]any{
		"languages": map[string]any{"list": list},
		"config":    o.book.Config().Dump(),
		"gitbook":   page.GeneratorContext(),
	}, layout)

	out, err := o.templates.Render(layout, data, o.helpers(nil))
	if err != nil {
		return err
	}
	return o.WriteFile(file, []byte(out))
}
