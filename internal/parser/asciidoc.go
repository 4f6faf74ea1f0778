package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bytesparadise/libasciidoc"
	"github.com/bytesparadise/libasciidoc/pkg/configuration"
	"github.com/bytesparadise/libasciidoc/pkg/types"
)

// AsciiDoc renders AsciiDoc with libasciidoc, in the asciidoctor HTML5 markup
type AsciiDoc struct{}

// NewAsciiDoc creates the asciidoc parser
func NewAsciiDoc() *AsciiDoc { return &AsciiDoc{} }

func (a *AsciiDoc) Name() string { return "asciidoc" }

func (a *AsciiDoc) Extensions() []string { return []string{".adoc", ".asciidoc"} }

// Readme takes the document title, or the first heading, and the first paragraph
func (a *AsciiDoc) Readme(src string) (Readme, error) {
	out, meta, err := a.convert(src)
	if err != nil {
		return Readme{}, err
	}
	r, err := htmlReadme(out)
	if err != nil {
		return Readme{}, err
	}
	if meta.Title != "" {
		r.Title = meta.Title
	}
	return r, nil
}

func (a *AsciiDoc) Summary(src string) (SummarySpec, error) {
	out, err := a.Page(src)
	if err != nil {
		return SummarySpec{}, err
	}
	return htmlSummary(out)
}

func (a *AsciiDoc) Glossary(src string) ([]GlossaryItem, error) {
	out, err := a.Page(src)
	if err != nil {
		return nil, err
	}
	return htmlGlossary(out)
}

func (a *AsciiDoc) Langs(src string) ([]LangItem, error) {
	spec, err := a.Summary(src)
	if err != nil {
		return nil, err
	}
	return langsFromSummary(spec), nil
}

func (a *AsciiDoc) PagePrepare(src string) (string, error) { return src, nil }

// Page renders asciidoc to HTML, without the document header
func (a *AsciiDoc) Page(src string) (string, error) {
	out, _, err := a.convert(src)
	return out, err
}

// Inline renders a fragment; a single paragraph loses its wrappers
func (a *AsciiDoc) Inline(src string) (string, error) {
	out, err := a.Page(src)
	if err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(out)
	if inner, ok := strings.CutPrefix(trimmed, `<div class="paragraph">`); ok && strings.Count(trimmed, "<div") == 1 {
		return unwrapParagraph(strings.TrimSuffix(inner, "</div>")), nil
	}
	return trimmed, nil
}

var (
	// custom elements (hyphenated tag names) are raw HTML left by templating
	customElement = regexp.MustCompile(`<([a-z][a-z0-9]*-[a-z0-9-]*)(?:\s[^<>]*)?>(?:</[a-z][a-z0-9]*-[a-z0-9-]*>)?`)
	heldElement   = regexp.MustCompile("\uE000(\\d+)\uE001")
)

func (a *AsciiDoc) convert(src string) (string, types.Metadata, error) {
	var held []string
	src = customElement.ReplaceAllStringFunc(src, func(m string) string {
		held = append(held, m)
		return fmt.Sprintf("\uE000%d\uE001", len(held)-1)
	})

	var out strings.Builder
	meta, err := libasciidoc.Convert(strings.NewReader(src), &out, configuration.NewConfiguration(
		configuration.WithHeaderFooter(false),
	))
	if err != nil {
		return "", types.Metadata{}, fmt.Errorf("asciidoc: %w", err)
	}

	html := out.String()
	if len(held) > 0 {
		html = heldElement.ReplaceAllStringFunc(html, func(m string) string {
			i, err := strconv.Atoi(heldElement.FindStringSubmatch(m)[1])
			if err != nil || i >= len(held) {
				return m
			}
			return held[i]
		})
	}
	return html, meta, nil
}
