package parser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parsers that produce HTML read the book structures back from their rendered output.

// parseFragment returns the block elements of src, with div wrappers flattened
func parseFragment(src string) ([]*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return flattenDivs(nodes), nil
}

func flattenDivs(nodes []*html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		if n.Data != "div" {
			out = append(out, n)
			continue
		}
		var children []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		out = append(out, flattenDivs(children)...)
	}
	return out
}

func htmlReadme(src string) (Readme, error) {
	nodes, err := parseFragment(src)
	if err != nil {
		return Readme{}, err
	}

	var r Readme
	for _, n := range nodes {
		if headingLevel(n.Data) > 0 && r.Title == "" {
			r.Title = textContent(n)
		}
		if n.Data == "p" && r.Description == "" {
			r.Description = textContent(n)
		}
	}
	return r, nil
}

func htmlGlossary(src string) ([]GlossaryItem, error) {
	nodes, err := parseFragment(src)
	if err != nil {
		return nil, err
	}

	var items []GlossaryItem
	for i, n := range nodes {
		if n.Data != "h2" {
			continue
		}
		item := GlossaryItem{Name: textContent(n)}
		var desc []string
		for _, next := range nodes[i+1:] {
			if headingLevel(next.Data) > 0 {
				break
			}
			if text := textContent(next); text != "" {
				desc = append(desc, text)
			}
		}
		item.Description = strings.Join(desc, "\n")
		if item.Name != "" {
			items = append(items, item)
		}
	}
	return items, nil
}

func htmlSummary(src string) (SummarySpec, error) {
	nodes, err := parseFragment(src)
	if err != nil {
		return SummarySpec{}, err
	}

	var spec SummarySpec
	var current *SummaryPart
	openPart := func(title string) {
		if current != nil && current.Title == "" && len(current.Articles) == 0 {
			current.Title = title
			return
		}
		spec.Parts = append(spec.Parts, SummaryPart{Title: title})
		current = &spec.Parts[len(spec.Parts)-1]
	}

	for _, n := range nodes {
		switch {
		case n.Data == "h1":
		case headingLevel(n.Data) > 1:
			openPart(textContent(n))
		case n.Data == "hr":
			if current != nil {
				openPart("")
			}
		case n.Data == "ul" || n.Data == "ol":
			if current == nil {
				openPart("")
			}
			current.Articles = append(current.Articles, htmlListEntries(n)...)
		}
	}
	return spec, nil
}

func htmlListEntries(list *html.Node) []SummaryEntry {
	var entries []SummaryEntry
	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}

		var e SummaryEntry
		var title strings.Builder
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if nested := findList(c); nested != nil {
				e.Articles = append(e.Articles, htmlListEntries(nested)...)
				continue
			}
			if a := findElement(c, "a"); a != nil && e.Ref == "" && e.Title == "" {
				e.Title = textContent(a)
				e.Ref = attr(a, "href")
				continue
			}
			title.WriteString(textContent(c))
		}
		if e.Title == "" {
			e.Title = strings.TrimSpace(title.String())
		}
		entries = append(entries, e)
	}
	return entries
}

// findList returns c when it is a list, or the list a div around it wraps
func findList(c *html.Node) *html.Node {
	if c.Type != html.ElementNode {
		return nil
	}
	if c.Data == "ul" || c.Data == "ol" {
		return c
	}
	if c.Data != "div" {
		return nil
	}
	for _, n := range flattenDivs([]*html.Node{c}) {
		if n.Data == "ul" || n.Data == "ol" {
			return n
		}
	}
	return nil
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
