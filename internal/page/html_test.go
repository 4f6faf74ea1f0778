package page

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocine/folio/internal/glossary"
	"github.com/geocine/folio/internal/template"
)

func TestNormalizeDescription(t *testing.T) {
	var got string
	_, err := NormalizeHTML("<h1>Title</h1><p>  First paragraph  </p><p>Second</p>", PipelineOptions{
		OnDescription: func(d string) { got = d },
	})
	require.NoError(t, err)
	assert.Equal(t, "First paragraph", got)

	long := strings.Repeat("é", 200)
	_, err = NormalizeHTML("<p>"+long+"</p>", PipelineOptions{
		OnDescription: func(d string) { got = d },
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 155), got)

	_, err = NormalizeHTML("<h1>No paragraph</h1>", PipelineOptions{
		OnDescription: func(d string) { got = d },
	})
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestNormalizeHeadings(t *testing.T) {
	out, err := NormalizeHTML(`<h1>Hello World</h1><h2 id="keep">Other</h2><h3>Getting Started!</h3>`, PipelineOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, `<h1 id="hello-world">Hello World</h1>`)
	assert.Contains(t, out, `<h2 id="keep">Other</h2>`)
	assert.Contains(t, out, `<h3 id="getting-started">Getting Started!</h3>`)
}

func TestNormalizeImages(t *testing.T) {
	out, err := NormalizeHTML(`<p><img src="img/a.png" alt="a"/><img alt="no src"/></p>`, PipelineOptions{
		OnImage: func(src string) (string, error) { return "../" + src, nil },
	})
	require.NoError(t, err)
	assert.Contains(t, out, `<img src="../img/a.png" alt="a"/>`)
	assert.Contains(t, out, `<img alt="no src"/>`)

	_, err = NormalizeHTML(`<img src="x.png"/>`, PipelineOptions{
		OnImage: func(string) (string, error) { return "", errors.New("download failed") },
	})
	assert.ErrorContains(t, err, "download failed")
}

func TestNormalizeCodeBlocks(t *testing.T) {
	var langs []string
	opts := PipelineOptions{
		OnCodeBlock: func(source, lang string) (template.BlockResult, error) {
			langs = append(langs, lang)
			if lang == "go" {
				return template.BlockResult{Body: `<span class="kw">func</span>`}, nil
			}
			return template.BlockResult{Body: source, Text: true}, nil
		},
	}

	out, err := NormalizeHTML(
		`<pre><code class="lang-go">func</code></pre>`+
			`<pre><code class="language-js">a &lt; b</code></pre>`+
			`<p><code>inline</code></p>`, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "js", ""}, langs)
	assert.Contains(t, out, `<code class="lang-go"><span class="kw">func</span></code>`)
	assert.Contains(t, out, `<code class="language-js">a &lt; b</code>`)
	assert.Contains(t, out, `<code>inline</code>`)
}

func TestNormalizeSVG(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><svg><rect width="5" height="5"></rect></svg></svg>`

	var received []string
	out, err := NormalizeHTML("<p>before</p>"+svg, PipelineOptions{
		OnOutputSVG: func(s string) (string, error) {
			received = append(received, s)
			return "assets/abc.png", nil
		},
	})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.True(t, strings.HasPrefix(received[0], svgHeader+"\n<svg"))
	assert.Contains(t, out, `<img src="assets/abc.png"/>`)
	assert.NotContains(t, out, "<svg")

	// inline svgs stay when no file is produced
	out, err = NormalizeHTML(svg, PipelineOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "<svg")
}

func TestNormalizeAnnotations(t *testing.T) {
	annotations := []glossary.Annotation{{
		ID:          "hello_world",
		Name:        "Hello World",
		Description: "A greeting",
		Href:        "/GLOSSARY.md#hello_world",
	}}

	var linked int
	opts := PipelineOptions{
		Annotations:    annotations,
		OnAnnotation:   func(glossary.Annotation) { linked++ },
		OnRelativeLink: func(href string) string { return strings.Replace(href, ".md", ".html", 1) },
	}

	out, err := NormalizeHTML(`<p>HelloWorld is not a term</p>`+
		`<p>say Hello World!</p>`+
		`<p>hello world twice, HELLO WORLD</p>`+
		`<pre><code>Hello World</code></pre>`+
		`<div class="no-glossary"><p>Hello World</p></div>`+
		`<h2>Hello World</h2>`+
		`<p><a href="https://example.com">Hello World</a></p>`, opts)
	require.NoError(t, err)

	assert.Contains(t, out, `<p>HelloWorld is not a term</p>`)
	assert.Contains(t, out,
		`<p>say <a href="/GLOSSARY.html#hello_world" class="glossary-term" title="A greeting">Hello World</a>!</p>`)
	assert.Contains(t, out, `>hello world</a> twice, <a href="/GLOSSARY.html#hello_world" class="glossary-term" title="A greeting">HELLO WORLD</a></p>`)
	assert.Contains(t, out, `<pre><code>Hello World</code></pre>`)
	assert.Contains(t, out, `<div class="no-glossary"><p>Hello World</p></div>`)
	assert.Contains(t, out, `<h2 id="hello-world">Hello World</h2>`)
	assert.Contains(t, out, `<a href="https://example.com" target="_blank">Hello World</a>`)
	assert.Equal(t, 3, linked)
}

func TestNormalizeLinks(t *testing.T) {
	opts := PipelineOptions{
		OnRelativeLink: func(href string) string {
			if href == "test.md" {
				return "test.html"
			}
			return href
		},
	}
	out, err := NormalizeHTML(`<a href="#section">anchor</a>`+
		`<a href="test.md#part-2">relative</a>`+
		`<a href="other.md">unknown</a>`+
		`<a href="./my%20file.pdf">spaces</a>`+
		`<a href="a%23b.pdf">hash</a>`+
		`<a href="./file%20name.pdf?dl=1#x">query</a>`+
		`<a href="http://example.com">external</a>`+
		`<a>empty</a>`, opts)
	require.NoError(t, err)

	assert.Contains(t, out, `<a href="#section">anchor</a>`)
	assert.Contains(t, out, `<a href="test.html#part-2">relative</a>`)
	assert.Contains(t, out, `<a href="other.md">unknown</a>`)
	assert.Contains(t, out, `<a href="./my%20file.pdf">spaces</a>`)
	assert.Contains(t, out, `<a href="a%23b.pdf">hash</a>`)
	assert.Contains(t, out, `<a href="./file%20name.pdf?dl=1#x">query</a>`)
	assert.Contains(t, out, `<a href="http://example.com" target="_blank">external</a>`)
	assert.Contains(t, out, `<a>empty</a>`)
}

func TestCodeLanguage(t *testing.T) {
	assert.Equal(t, "go", codeLanguage("lang-go"))
	assert.Equal(t, "ruby", codeLanguage("highlight language-ruby"))
	assert.Equal(t, "", codeLanguage("plain"))
}
