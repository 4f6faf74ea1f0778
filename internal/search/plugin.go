package search

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/plugins"
)

const (
	// Name of the plugin in the plugins list
	Name = "search"
	// IndexFile is written at the root of the website output
	IndexFile = "search_index.json"

	defaultMaxIndexSize = 1000000
)

// Plugin collects one document per page and writes the index when the website is finished
type Plugin struct {
	plugins.Base

	host    plugins.Host
	logger  *zap.Logger
	index   *Index
	maxSize int
	size    int
	full    bool
}

// New is the plugins.Factory of the search plugin
func New(env plugins.Env) (plugins.Plugin, error) {
	maxSize := defaultMaxIndexSize
	switch v := env.Settings.Extra["maxIndexSize"].(type) {
	case int:
		maxSize = v
	case int64:
		maxSize = int(v)
	case float64:
		maxSize = int(v)
	}

	logger := env.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Plugin{
		Base:    plugins.Base{PluginName: Name},
		host:    env.Host,
		logger:  logger,
		index:   NewIndex(),
		maxSize: maxSize,
	}, nil
}

func (p *Plugin) Hooks() plugins.Hooks {
	return plugins.Hooks{
		Page:   p.onPage,
		Finish: p.onFinish,
	}
}

// Index returns the documents collected so far
func (p *Plugin) Index() *Index { return p.index }

func (p *Plugin) onPage(_ context.Context, page plugins.PageInput) (string, error) {
	if p.host == nil || p.host.Name() != "website" || p.full {
		return "", nil
	}

	body := TextContent(page.Content)
	p.size += len(body)
	if p.maxSize > 0 && p.size > p.maxSize {
		p.full = true
		p.logger.Warn("Search index is too big, indexing is now disabled",
			zap.Int("maxIndexSize", p.maxSize), zap.String("file", page.Path))
		return "", nil
	}

	url := p.host.ToURL(page.Path)
	p.index.Add(Document{ID: url, URL: url, Title: page.Title, Body: body})
	return "", nil
}

func (p *Plugin) onFinish(context.Context) error {
	if p.host == nil || p.host.Name() != "website" {
		return nil
	}

	data, err := json.Marshal(p.index)
	if err != nil {
		return errs.Plugin(Name, "failed to encode the search index", err)
	}
	if err := p.host.WriteFile(IndexFile, data); err != nil {
		return errs.Output(IndexFile, "failed to write the search index", err)
	}
	p.logger.Debug("Search index written", zap.Int("documents", p.index.Len()))
	return nil
}

// TextContent returns the text of an HTML fragment, without scripts and styles,
// with white space collapsed
func TextContent(content string) string {
	var words []string
	skip := 0

	z := html.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(words, " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isHidden(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHidden(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				words = append(words, strings.Fields(string(z.Text()))...)
			}
		}
	}
}

func isHidden(tag string) bool {
	return tag == "script" || tag == "style"
}
