package template

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/geocine/folio/internal/errs"
)

type mapLoader map[string]string

func (m mapLoader) Load(_ context.Context, from, name string) (Source, error) {
	content, ok := m[name]
	if !ok {
		return Source{}, fmt.Errorf("template %q not found (from %q)", name, from)
	}
	return Source{Path: name, Content: content}, nil
}

func render(t *testing.T, e *Engine, content string, data map[string]any) string {
	t.Helper()
	out, err := e.RenderString(context.Background(), content, data, RenderOptions{Path: "page.md", Type: "markdown"})
	require.NoError(t, err)
	return out
}

func TestVariablesAndFilters(t *testing.T) {
	e := New(nil, nil)
	data := map[string]any{
		"book": map[string]any{"title": "  My Book  ", "empty": ""},
	}

	assert.Equal(t, "Hello   My Book  ", render(t, e, "Hello {{book.title}}", data))
	assert.Equal(t, "MY BOOK", render(t, e, "{{upper (trim book.title)}}", data))
	assert.Equal(t, "none", render(t, e, `{{default book.empty "none"}}`, data))
	assert.Equal(t, "  My", render(t, e, `{{trunc 4 book.title}}`, data))
}

func TestAddFilterConflict(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	e := New(nil, zap.New(core))

	assert.True(t, e.AddFilter("hello", func(s string) string { return "hello " + s }))
	assert.False(t, e.AddFilter("hello", func(s string) string { return s }))
	assert.False(t, e.AddFilter("broken", func(s string) (string, error) { return s, nil }))
	assert.Equal(t, 1, logs.FilterMessage("Conflict in filters, filter is already set").Len())

	assert.Equal(t, "hello world", render(t, e, `{{hello "world"}}`, nil))
}

func TestParseBlock(t *testing.T) {
	e := New(nil, nil)
	require.NoError(t, e.AddBlock("shout", Block{
		Process: func(_ context.Context, in BlockInput) (BlockResult, error) {
			return BlockResult{Body: strings.ToUpper(in.Body) + fmt.Sprint(in.Kwargs["mark"]), Parse: true}, nil
		},
	}))

	out := render(t, e, `{{#shout mark="!"}}hello {{name}}{{/shout}}`, map[string]any{"name": "you"})
	assert.Equal(t, "HELLO YOU!", out)
}

func TestDeferredBlock(t *testing.T) {
	e := New(nil, nil)

	out, err := e.Render(context.Background(), "a {{#html}}<b>raw</b>{{/html}} b", nil, RenderOptions{})
	require.NoError(t, err)
	assert.NotContains(t, out, "<b>raw</b>")
	assert.Contains(t, out, "<"+markerTag+` data-id="`)

	final, err := e.PostProcess("<p>" + out + "</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>a <b>raw</b> b</p>", final)

	// a marker is resolved only once
	again, err := e.PostProcess(out)
	require.NoError(t, err)
	assert.Contains(t, again, markerTag)
}

func TestDeferredTextBlockIsEscaped(t *testing.T) {
	e := New(nil, nil)

	out, err := e.Render(context.Background(), `{{#code}}<script>a && b</script>{{/code}}`, nil, RenderOptions{})
	require.NoError(t, err)
	final, err := e.PostProcess("<pre><code>" + out + "</code></pre>")
	require.NoError(t, err)
	assert.Equal(t, "<pre><code>&lt;script&gt;a &amp;&amp; b&lt;/script&gt;</code></pre>", final)
}

func TestPostProcessKeepsUnknownMarkers(t *testing.T) {
	e := New(nil, nil)
	in := `<p>x <folio-block data-id="404"></folio-block> <em>y</em></p>`
	out, err := e.PostProcess(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestShortcuts(t *testing.T) {
	e := New(nil, nil)
	require.NoError(t, e.AddBlock("math", Block{
		Process: func(_ context.Context, in BlockInput) (BlockResult, error) {
			return BlockResult{Body: "<math>" + in.Body + "</math>"}, nil
		},
		Shortcuts: []Shortcut{{Parsers: []string{"markdown"}, Start: "$$", End: "$$"}},
	}))

	assert.Equal(t, "{{#math}}x+1{{/math}}", e.ApplyShortcuts("markdown", "$$x+1$$"))
	assert.Equal(t, "$$x+1$$", e.ApplyShortcuts("asciidoc", "$$x+1$$"))
	assert.Equal(t, "a <math>x+1</math>", render(t, e, "a $$x+1$$", nil))

	e.RemoveBlock("math")
	assert.False(t, e.HasBlock("math"))
	assert.Equal(t, "$$x+1$$", e.ApplyShortcuts("markdown", "$$x+1$$"))
}

func TestDefaultBlocks(t *testing.T) {
	e := New(nil, nil)
	for _, name := range []string{"html", "code", "markdown", "asciidoc"} {
		assert.True(t, e.HasBlock(name), name)
	}

	res, err := e.ApplyBlock(context.Background(), "code", BlockInput{Body: "a < b"})
	require.NoError(t, err)
	assert.True(t, res.Text)
	assert.Equal(t, "a < b", res.Body)

	assert.Equal(t, "<p><strong>bold</strong></p>\n", render(t, e, "{{#markdown}}**bold**{{/markdown}}", nil))

	_, err = e.ApplyBlock(context.Background(), "missing", BlockInput{})
	assert.Error(t, err)
}

func TestInclude(t *testing.T) {
	e := New(mapLoader{
		"header.md": "# {{title}}",
		"loop.md":   `{{include "loop.md"}}`,
	}, nil)

	assert.Equal(t, "# Hello\ntext", render(t, e, "{{include \"header.md\"}}\ntext", map[string]any{"title": "Hello"}))

	_, err := e.Render(context.Background(), `{{include "loop.md"}}`, nil, RenderOptions{Path: "page.md"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many nested includes")
}

func TestRenderErrors(t *testing.T) {
	e := New(nil, nil)

	_, err := e.Render(context.Background(), "{{#if}}unclosed", nil, RenderOptions{})
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindTemplate))
	assert.Contains(t, err.Error(), `"<inline>"`)

	require.NoError(t, e.AddBlock("fail", Block{
		Process: func(context.Context, BlockInput) (BlockResult, error) {
			return BlockResult{}, errors.New("boom")
		},
	}))
	_, err = e.Render(context.Background(), "{{#fail}}x{{/fail}}", nil, RenderOptions{Path: "ch1.md"})
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindTemplate))
	assert.Contains(t, err.Error(), `"ch1.md"`)
	assert.Contains(t, err.Error(), "boom")

	_, err = e.Render(context.Background(), `{{include "x.md"}}`, nil, RenderOptions{})
	assert.Error(t, err)
}
