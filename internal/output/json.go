package output

import (
	"context"
	"encoding/json"
	"path"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/page"
)

// JSONVersion is the version of the page documents
const JSONVersion = "2"

// jsonFormat writes one JSON document per page
type jsonFormat struct{}

func (j *jsonFormat) Name() string { return JSON }

func (j *jsonFormat) Prepare(context.Context, *Output) error { return nil }

func (j *jsonFormat) OnAsset(context.Context, *Output, string) error { return nil }

func (j *jsonFormat) OnPage(ctx context.Context, o *Output, p *page.Page) error {
	if _, err := p.ToHTML(ctx, o); err != nil {
		return err
	}

	doc := p.Context(o)
	delete(doc, "config")
	doc["version"] = JSONVersion

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return errs.Output(p.Path, "failed to encode page", err)
	}
	return o.WriteFile(p.WithExtension(".json"), data)
}

// Finish copies the readme of the default language to the root of a multilingual book
func (j *jsonFormat) Finish(_ context.Context, o *Output) error {
	if !o.book.IsMultilingual() {
		return nil
	}
	lang, ok := o.book.Langs().Default()
	if !ok {
		return nil
	}
	src := path.Join(lang.ID(), "README.json")
	data, err := o.sink.ReadFile(src)
	if err != nil {
		return err
	}
	return o.WriteFile("README.json", data)
}
