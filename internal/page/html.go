package page

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/geocine/folio/internal/glossary"
	"github.com/geocine/folio/internal/location"
	"github.com/geocine/folio/internal/template"
)

const (
	maxDescriptionLength = 155
	svgHeader            = `<?xml version="1.0" encoding="UTF-8"?>`
)

// PipelineOptions are the callbacks the HTML normalization invokes. Nil callbacks are identities.
type PipelineOptions struct {
	// OnDescription receives the text of the first paragraph
	OnDescription func(description string)
	// OnRelativeLink computes the new href of a link to a file of the book
	OnRelativeLink func(href string) string
	// OnImage returns the src to use for an image
	OnImage func(src string) (string, error)
	// OnCodeBlock renders the source of a code element
	OnCodeBlock func(source, lang string) (template.BlockResult, error)
	// OnOutputSVG returns the file an inline svg was written to, "" keeps the svg inline
	OnOutputSVG func(svg string) (string, error)

	// Annotations are the glossary terms to link
	Annotations []glossary.Annotation
	// OnAnnotation is called for every linked term
	OnAnnotation func(a glossary.Annotation)
}

func (o *PipelineOptions) defaults() {
	if o.OnDescription == nil {
		o.OnDescription = func(string) {}
	}
	if o.OnRelativeLink == nil {
		o.OnRelativeLink = func(href string) string { return href }
	}
	if o.OnImage == nil {
		o.OnImage = func(src string) (string, error) { return src, nil }
	}
	if o.OnCodeBlock == nil {
		o.OnCodeBlock = func(source, _ string) (template.BlockResult, error) {
			return template.BlockResult{Body: source, Text: true}, nil
		}
	}
	if o.OnOutputSVG == nil {
		o.OnOutputSVG = func(string) (string, error) { return "", nil }
	}
	if o.OnAnnotation == nil {
		o.OnAnnotation = func(glossary.Annotation) {}
	}
}

// NormalizeHTML runs the normalization stages over an HTML fragment, in this order:
// description, images, heading ids, code blocks, inline svgs, glossary annotations, links.
// Links come last so the links created by annotations are rewritten too.
func NormalizeHTML(content string, opts PipelineOptions) (string, error) {
	opts.defaults()

	root, err := parseFragment(content)
	if err != nil {
		return "", err
	}

	stages := []struct {
		name string
		run  func(*html.Node, *PipelineOptions) error
	}{
		{"description", extractDescription},
		{"images", transformImages},
		{"headings", transformHeadings},
		{"code", transformCodeBlocks},
		{"svg", transformSVGs},
		{"annotations", applyAnnotations},
		{"links", transformLinks},
	}
	for _, s := range stages {
		if err := s.run(root, &opts); err != nil {
			return "", fmt.Errorf("normalize %s: %w", s.name, err)
		}
	}

	return renderChildren(root)
}

func extractDescription(root *html.Node, opts *PipelineOptions) error {
	p := findFirst(root, func(n *html.Node) bool { return n.DataAtom == atom.P })
	if p == nil {
		opts.OnDescription("")
		return nil
	}
	opts.OnDescription(truncate(strings.TrimSpace(textContent(p)), maxDescriptionLength))
	return nil
}

func transformImages(root *html.Node, opts *PipelineOptions) error {
	for _, img := range findAll(root, isElement(atom.Img)) {
		src, ok := getAttr(img, "src")
		if !ok {
			continue
		}
		out, err := opts.OnImage(src)
		if err != nil {
			return err
		}
		setAttr(img, "src", out)
	}
	return nil
}

func transformHeadings(root *html.Node, _ *PipelineOptions) error {
	for _, h := range findAll(root, isHeading) {
		if id, _ := getAttr(h, "id"); id != "" {
			continue
		}
		setAttr(h, "id", slug.Make(textContent(h)))
	}
	return nil
}

func transformCodeBlocks(root *html.Node, opts *PipelineOptions) error {
	for _, code := range findAll(root, isElement(atom.Code)) {
		class, _ := getAttr(code, "class")
		res, err := opts.OnCodeBlock(textContent(code), codeLanguage(class))
		if err != nil {
			return err
		}

		removeChildren(code)
		if res.Text {
			code.AppendChild(&html.Node{Type: html.TextNode, Data: res.Body})
			continue
		}
		nodes, err := html.ParseFragment(strings.NewReader(res.Body), code)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			code.AppendChild(n)
		}
	}
	return nil
}

// codeLanguage reads the language from "lang-X" (markdown) or "language-X" (asciidoc) classes
func codeLanguage(class string) string {
	for _, cl := range strings.Fields(class) {
		if strings.HasPrefix(cl, "lang-") {
			return strings.TrimPrefix(cl, "lang-")
		}
		if strings.HasPrefix(cl, "language-") {
			return strings.TrimPrefix(cl, "language-")
		}
	}
	return ""
}

func transformSVGs(root *html.Node, opts *PipelineOptions) error {
	svgs := findAll(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "svg" && !hasAncestor(n, func(a *html.Node) bool {
			return a.Type == html.ElementNode && a.Data == "svg"
		})
	})

	for _, svg := range svgs {
		var buf strings.Builder
		if err := html.Render(&buf, svg); err != nil {
			return err
		}
		filename, err := opts.OnOutputSVG(svgHeader + "\n" + buf.String())
		if err != nil {
			return err
		}
		if filename == "" {
			continue
		}

		img := &html.Node{
			Type:     html.ElementNode,
			Data:     "img",
			DataAtom: atom.Img,
			Attr:     []html.Attribute{{Key: "src", Val: filename}},
		}
		svg.Parent.InsertBefore(img, svg)
		svg.Parent.RemoveChild(svg)
	}
	return nil
}

// isAnnotationIgnored matches .no-glossary, code, pre, a, script and headings
func isAnnotationIgnored(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Code, atom.Pre, atom.A, atom.Script:
		return true
	}
	if isHeading(n) {
		return true
	}
	class, _ := getAttr(n, "class")
	for _, cl := range strings.Fields(class) {
		if cl == "no-glossary" {
			return true
		}
	}
	return false
}

func applyAnnotations(root *html.Node, opts *PipelineOptions) error {
	for _, annotation := range opts.Annotations {
		if annotation.Name == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b(` + regexp.QuoteMeta(strings.ToLower(annotation.Name)) + `)\b`)
		if err != nil {
			return err
		}
		elements := findAll(root, func(n *html.Node) bool { return n.Type == html.ElementNode })
		elements = append([]*html.Node{root}, elements...)
		for _, el := range elements {
			if isAnnotationIgnored(el) || hasAncestor(el, isAnnotationIgnored) {
				continue
			}
			for c := el.FirstChild; c != nil; {
				next := c.NextSibling
				if c.Type == html.TextNode {
					annotateText(c, re, annotation, opts)
				}
				c = next
			}
		}
	}
	return nil
}

// annotateText replaces the matches of re in a text node by glossary links
func annotateText(text *html.Node, re *regexp.Regexp, annotation glossary.Annotation, opts *PipelineOptions) {
	matches := re.FindAllStringIndex(text.Data, -1)
	if len(matches) == 0 {
		return
	}

	parent := text.Parent
	last := 0
	for _, m := range matches {
		if m[0] > last {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text.Data[last:m[0]]}, text)
		}
		a := &html.Node{
			Type:     html.ElementNode,
			Data:     "a",
			DataAtom: atom.A,
			Attr: []html.Attribute{
				{Key: "href", Val: annotation.Href},
				{Key: "class", Val: "glossary-term"},
				{Key: "title", Val: annotation.Description},
			},
		}
		a.AppendChild(&html.Node{Type: html.TextNode, Data: text.Data[m[0]:m[1]]})
		parent.InsertBefore(a, text)
		opts.OnAnnotation(annotation)
		last = m[1]
	}
	if last < len(text.Data) {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text.Data[last:]}, text)
	}
	parent.RemoveChild(text)
}

func transformLinks(root *html.Node, opts *PipelineOptions) error {
	for _, a := range findAll(root, isElement(atom.A)) {
		href, _ := getAttr(a, "href")
		if href == "" {
			continue
		}

		switch {
		case location.IsAnchor(href):
			// anchors stay as they are
		case location.IsRelative(href):
			// the target keeps its escapes, only the page lookup decodes it
			target, frag, hasFrag := strings.Cut(href, "#")
			out := opts.OnRelativeLink(target)
			if hasFrag {
				out += "#" + frag
			}
			setAttr(a, "href", out)
		default:
			setAttr(a, "target", "_blank")
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
