package template

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// markerTag is the element standing for a deferred block until post-processing
const markerTag = "folio-block"

func marker(id string) string {
	return fmt.Sprintf(`<%s data-id="%s"></%s>`, markerTag, id, markerTag)
}

// PostProcess replaces the markers left by deferred blocks with their bodies.
// Markers are found by tokenizing the HTML, never by text search.
func (e *Engine) PostProcess(content string) (string, error) {
	if !strings.Contains(content, "<"+markerTag) {
		return content, nil
	}

	var out strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	open := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return out.String(), nil
			}
			return "", fmt.Errorf("post-process blocks: %w", z.Err())

		case html.StartTagToken, html.SelfClosingTagToken:
			raw := string(z.Raw())
			tok := z.Token()
			if tok.Data != markerTag {
				out.WriteString(raw)
				continue
			}
			body, ok := e.takeDeferred(attr(tok, "data-id"))
			if !ok {
				out.WriteString(raw)
				continue
			}
			out.WriteString(body)
			if tt == html.StartTagToken {
				open++
			}

		case html.EndTagToken:
			raw := string(z.Raw())
			if open > 0 && z.Token().Data == markerTag {
				open--
				continue
			}
			out.WriteString(raw)

		default:
			out.Write(z.Raw())
		}
	}
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
