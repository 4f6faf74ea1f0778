package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Markdown handles CommonMark + GFM sources
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates the markdown parser
func NewMarkdown() *Markdown {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.DefinitionList,
		),
		goldmark.WithRendererOptions(
			ghtml.WithUnsafe(),
		),
	)
	return &Markdown{md: md}
}

func (m *Markdown) Name() string { return "markdown" }

func (m *Markdown) Extensions() []string { return []string{".md", ".markdown", ".mdown"} }

func (m *Markdown) parse(src string) (ast.Node, []byte) {
	source := []byte(src)
	return m.md.Parser().Parse(text.NewReader(source)), source
}

// Readme takes the first heading as title and the first paragraph as description
func (m *Markdown) Readme(src string) (Readme, error) {
	doc, source := m.parse(src)

	var r Readme
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if r.Title == "" {
				r.Title = textOf(node, source)
			}
		case *ast.Paragraph:
			if r.Description == "" {
				r.Description = textOf(node, source)
			}
		}
		if r.Title != "" && r.Description != "" {
			break
		}
	}
	return r, nil
}

// Glossary reads one entry per second level heading, described by the blocks up to the next heading
func (m *Markdown) Glossary(src string) ([]GlossaryItem, error) {
	doc, source := m.parse(src)

	var items []GlossaryItem
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 2 {
			continue
		}
		item := GlossaryItem{Name: textOf(h, source)}
		var desc []string
		for next := h.NextSibling(); next != nil; next = next.NextSibling() {
			if _, isHeading := next.(*ast.Heading); isHeading {
				break
			}
			if t := textOf(next, source); t != "" {
				desc = append(desc, t)
			}
		}
		item.Description = strings.Join(desc, "\n")
		if item.Name != "" {
			items = append(items, item)
		}
	}
	return items, nil
}

// PagePrepare escapes the template openers found in code spans and code blocks so that
// code reaches the page as written
func (m *Markdown) PagePrepare(src string) (string, error) {
	if !strings.Contains(src, "{{") {
		return src, nil
	}
	doc, source := m.parse(src)

	var code []text.Segment
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					code = append(code, t.Segment)
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				code = append(code, lines.At(i))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return escapeMustaches(source, code), nil
}

// escapeMustaches writes source with "\{{" in place of each "{{" inside the segments,
// which must be in document order
func escapeMustaches(source []byte, segments []text.Segment) string {
	var b strings.Builder
	b.Grow(len(source))
	last := 0
	for _, seg := range segments {
		if seg.Start < last {
			continue
		}
		b.Write(source[last:seg.Start])
		code := source[seg.Start:seg.Stop]
		for i := 0; i < len(code); i++ {
			if code[i] == '{' && i+1 < len(code) && code[i+1] == '{' {
				b.WriteByte('\\')
				for ; i < len(code) && code[i] == '{'; i++ {
					b.WriteByte('{')
				}
				i--
				continue
			}
			b.WriteByte(code[i])
		}
		last = seg.Stop
	}
	b.Write(source[last:])
	return b.String()
}

// Page renders markdown to HTML
func (m *Markdown) Page(src string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// Inline renders a fragment and drops the paragraph goldmark wraps it in
func (m *Markdown) Inline(src string) (string, error) {
	out, err := m.Page(src)
	if err != nil {
		return "", err
	}
	return unwrapParagraph(out), nil
}

// textOf gets the plain text content of a goldmark node
func textOf(n ast.Node, source []byte) string {
	var buf strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.Label(source))
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

func unwrapParagraph(out string) string {
	trimmed := strings.TrimSpace(out)
	if strings.HasPrefix(trimmed, "<p>") && strings.HasSuffix(trimmed, "</p>") &&
		strings.Count(trimmed, "<p>") == 1 {
		return strings.TrimSuffix(strings.TrimPrefix(trimmed, "<p>"), "</p>")
	}
	return trimmed
}
