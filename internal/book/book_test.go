package book

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/vfs"
)

func parse(t *testing.T, files map[string]string, opts ...Option) *Book {
	t.Helper()
	b := New(vfs.NewMemory(files), ".", opts...)
	require.NoError(t, b.Parse(context.Background()))
	return b
}

func TestParseReadmeOnly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	b := parse(t, map[string]string{
		"README.md": "# My Book\n\nA book about things.\n",
	}, WithLogger(zap.New(core)))

	assert.Equal(t, StateParsed, b.State())
	assert.Equal(t, "My Book", b.Config().Title())
	assert.Equal(t, "A book about things.", b.Config().Description())
	assert.Equal(t, "README.md", b.Readme().Path)

	require.NotNil(t, b.Summary())
	assert.Equal(t, 1, b.Summary().Count())
	intro := b.Summary().First()
	assert.True(t, intro.IsIntroduction)
	assert.Equal(t, "README.md", intro.Path)

	assert.True(t, b.HasPage("README.md"))
	assert.Len(t, b.Pages(), 1)
	assert.Equal(t, 1, logs.FilterMessage("No summary file in this book").Len())
}

func TestParseSummaryChain(t *testing.T) {
	b := parse(t, map[string]string{
		"README.md": "# Intro\n",
		"SUMMARY.md": "# Summary\n\n" +
			"* [Intro](README.md)\n" +
			"* [Chapter 1](chapter-1/README.md)\n" +
			"    * [Section 1.1](chapter-1/section.md)\n" +
			"* [Chapter 2](chapter-2.md)\n" +
			"* [External](https://example.com)\n",
		"chapter-1/README.md":  "# Chapter 1\n",
		"chapter-1/section.md": "# Section\n",
		"chapter-2.md":         "# Chapter 2\n",
	})

	s := b.Summary()
	require.Equal(t, 5, s.Count())

	var titles []string
	for a := s.First(); a != nil; a = s.Next(a) {
		titles = append(titles, a.Title)
	}
	assert.Equal(t, []string{"Intro", "Chapter 1", "Section 1.1", "Chapter 2", "External"}, titles)

	section := s.ArticleByPath("chapter-1/section.md")
	require.NotNil(t, section)
	assert.Equal(t, "1.1", section.Level)
	assert.Equal(t, "Chapter 1", s.Prev(section).Title)

	var pages []string
	for _, p := range b.Pages() {
		pages = append(pages, p.Path)
	}
	assert.Equal(t, []string{"README.md", "chapter-1/README.md", "chapter-1/section.md", "chapter-2.md"}, pages)
}

func TestParseMissingReadme(t *testing.T) {
	b := New(vfs.NewMemory(map[string]string{"SUMMARY.md": "# Summary\n"}), ".")
	err := b.Parse(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindFileNotFound))
	assert.Equal(t, StateLanguagesLoaded, b.State())
}

func TestParseMissingPageIsSkipped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	b := parse(t, map[string]string{
		"README.md":  "# Intro\n",
		"SUMMARY.md": "* [Intro](README.md)\n* [Gone](gone.md)\n",
	}, WithLogger(zap.New(core)))

	assert.False(t, b.HasPage("gone.md"))
	assert.Equal(t, 1, logs.FilterMessage("Page cannot be parsed").Len())
}

func TestParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := New(vfs.NewMemory(map[string]string{"README.md": "# Intro\n"}), ".")
	err := b.Parse(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateUnconfigured, b.State())
}

func TestParseConfigRoot(t *testing.T) {
	b := parse(t, map[string]string{
		"book.json":        `{"root": "docs", "title": "Configured"}`,
		"docs/README.md":   "# Docs\n",
		"docs/SUMMARY.md":  "* [Docs](README.md)\n* [Guide](guide.md)\n",
		"docs/guide.md":    "guide",
		"README.md":        "# Repository readme\n",
		"docs/GLOSSARY.md": "## Term\nA term.\n",
	})

	assert.Equal(t, "docs", b.Root())
	assert.Equal(t, "Configured", b.Config().Title())
	assert.True(t, b.HasPage("guide.md"))
	assert.True(t, b.HasPage("GLOSSARY.md"))
	assert.Equal(t, 1, b.Glossary().Count())

	content, err := b.ReadFile("guide.md")
	require.NoError(t, err)
	assert.Equal(t, "guide", content)
}

func TestParseConfigRootOutOfScope(t *testing.T) {
	b := New(vfs.NewMemory(map[string]string{
		"book.json": `{"root": "docs"}`,
		"README.md": "# Intro\n",
	}), ".", WithConfig(map[string]any{"root": "docs/../.."}))

	err := b.Parse(context.Background())
	require.Error(t, err)
}

func TestWithConfigOverridesFile(t *testing.T) {
	b := parse(t, map[string]string{
		"book.json": `{"title": "From file", "variables": {"version": "1.0"}}`,
		"README.md": "# Intro\n",
	}, WithConfig(map[string]any{"title": "From flags"}))

	assert.Equal(t, "From flags", b.Config().Title())
	assert.Equal(t, map[string]any{"version": "1.0", "language": ""}, b.Context())
}

func TestMultilingual(t *testing.T) {
	b := parse(t, map[string]string{
		"LANGS.md":        "* [English](en/)\n* [Français](fr/)\n",
		"book.json":       `{"title": "Shared"}`,
		"en/README.md":    "# English\n",
		"en/SUMMARY.md":   "* [Intro](README.md)\n* [Glossary](../GLOSSARY.md)\n",
		"fr/README.md":    "# Français\n",
		"fr/book.json":    `{"title": "Le livre"}`,
		"GLOSSARY.md":     "## Shared term\nEverywhere.\n",
		"en/chapter.md":   "chapter",
		"fr/chapter.md":   "chapitre",
		"other/README.md": "not a language",
	})

	assert.True(t, b.IsMultilingual())
	assert.False(t, b.IsLanguageBook())
	assert.Nil(t, b.Summary())
	require.Len(t, b.Books(), 2)

	en, fr := b.Books()[0], b.Books()[1]
	assert.True(t, en.IsLanguageBook())
	assert.Equal(t, "en", en.Language())
	assert.Equal(t, "fr", fr.Language())
	assert.Equal(t, "Shared", en.Config().Title())
	assert.Equal(t, "Le livre", fr.Config().Title())
	assert.Equal(t, StateParsed, en.State())

	// files shared by every language can be reached from a language
	content, err := en.ReadFile("../GLOSSARY.md")
	require.NoError(t, err)
	assert.Contains(t, content, "Shared term")

	assert.True(t, b.IsInLanguageBook("en/chapter.md"))
	assert.True(t, b.IsInLanguageBook("fr"))
	assert.False(t, b.IsInLanguageBook("other/README.md"))
}

func TestLanguageBookCannotBeMultilingual(t *testing.T) {
	b := New(vfs.NewMemory(map[string]string{
		"LANGS.md":     "* [English](en/)\n",
		"en/LANGS.md":  "* [Nested](nested/)\n",
		"en/README.md": "# English\n",
	}), ".")

	err := b.Parse(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindParsing))
	assert.Contains(t, err.Error(), "A multilingual book as a language book is forbidden")
}

func TestResolve(t *testing.T) {
	b := New(vfs.NewMemory(nil), "book")

	p, err := b.Resolve("a/b.md")
	require.NoError(t, err)
	assert.Equal(t, "book/a/b.md", p)

	p, err = b.Resolve("a", "/c.md")
	require.NoError(t, err)
	assert.Equal(t, "book/c.md", p)

	_, err = b.Resolve("../outside.md")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindFileOutOfScope))

	lang := New(vfs.NewMemory(nil), "book/en", WithParent(b))
	p, err = lang.Resolve("../GLOSSARY.md")
	require.NoError(t, err)
	assert.Equal(t, "book/GLOSSARY.md", p)

	_, err = lang.Resolve("../../secret.md")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindFileOutOfScope))
}

func TestIgnoreRules(t *testing.T) {
	b := parse(t, map[string]string{
		"README.md":               "# Intro\n",
		".bookignore":             "# drafts\ndrafts/\n*.tmp\n",
		".gitignore":              "secret.md\n",
		"drafts/idea.md":          "idea",
		"notes.tmp":               "tmp",
		"secret.md":               "secret",
		"node_modules/x/index.js": "x",
		"_book/index.html":        "old",
		"book.pdf":                "%PDF",
		"styles/website.css":      "body {}",
	})

	assert.True(t, b.IsFileIgnored("drafts/"))
	assert.True(t, b.IsFileIgnored("drafts/idea.md"))
	assert.True(t, b.IsFileIgnored("notes.tmp"))
	assert.True(t, b.IsFileIgnored("secret.md"))
	assert.True(t, b.IsFileIgnored(".git/config"))
	assert.False(t, b.IsFileIgnored("README.md"))

	files, err := b.ListFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{".bookignore", ".gitignore", "README.md", "styles/website.css"}, files)

	_, err = b.ReadFile("secret.md")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindFileNotFound))

	_, err = b.StatFile("notes.tmp")
	assert.True(t, errs.IsKind(err, errs.KindFileNotFound))
}

func TestLanguageBookInheritsIgnoreRules(t *testing.T) {
	b := parse(t, map[string]string{
		"LANGS.md":        "* [English](en/)\n",
		".bookignore":     "en/private/\n",
		"en/README.md":    "# English\n",
		"en/private/a.md": "private",
	})

	en := b.Books()[0]
	assert.True(t, en.IsFileIgnored("private/a.md"))
	assert.True(t, en.IsFileIgnored("book.epub"))
	assert.False(t, en.IsFileIgnored("README.md"))
}

func TestFindParsableFile(t *testing.T) {
	b := New(vfs.NewMemory(map[string]string{
		"readme.md":     "# lower",
		"SUMMARY.adoc":  "= Summary",
		"GLOSSARY.md":   "",
		"GLOSSARY.adoc": "",
	}), ".")

	f, ok, err := b.FindParsableFile("README.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "readme.md", f.Path)
	assert.Equal(t, "markdown", f.Parser.Name())

	f, ok, err = b.FindParsableFile("SUMMARY.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "SUMMARY.adoc", f.Path)
	assert.Equal(t, "asciidoc", f.Parser.Name())

	// the requested extension wins
	f, ok, err = b.FindParsableFile("GLOSSARY.adoc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "GLOSSARY.adoc", f.Path)

	_, ok, err = b.FindParsableFile("LANGS.md")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = b.FindParsableFile("../README.md")
	assert.True(t, errs.IsKind(err, errs.KindFileOutOfScope))
}

func TestAddPage(t *testing.T) {
	b := New(vfs.NewMemory(map[string]string{"a/b.md": "b"}), "book")

	p, err := b.AddPage("a/./b.md")
	require.NoError(t, err)
	assert.Equal(t, "a/b.md", p.Path)
	assert.Equal(t, "book/a/b.md", p.RawPath)

	again, err := b.AddPage("a/b.md")
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Len(t, b.Pages(), 1)

	_, err = b.AddPage("a/b.txt")
	assert.True(t, errs.IsKind(err, errs.KindParsing))
}

func TestRender(t *testing.T) {
	b := New(vfs.NewMemory(nil), ".")

	out, err := b.RenderInline("markdown", "**bold**")
	require.NoError(t, err)
	assert.Equal(t, "<strong>bold</strong>", out)

	out, err = b.RenderBlock(".md", "# Title")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1")

	_, err = b.RenderInline("rst", "x")
	assert.True(t, errs.IsKind(err, errs.KindParsing))
}
