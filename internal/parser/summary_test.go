package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleList(t *testing.T) {
	summary := `# Summary

- [Chapter 1](ch1.md)
- [Chapter 2](ch2.md)
`

	s, err := NewMarkdown().Summary(summary)
	require.NoError(t, err)

	require.Len(t, s.Parts, 1)
	articles := s.Parts[0].Articles
	assert.Len(t, articles, 2)
	assert.Equal(t, "Chapter 1", articles[0].Title)
	assert.Equal(t, "ch1.md", articles[0].Ref)
	assert.Equal(t, "Chapter 2", articles[1].Title)
	assert.Equal(t, "ch2.md", articles[1].Ref)
}

func TestParseNested(t *testing.T) {
	summary := `# Summary

- [Chapter 1](ch1.md)
  - [Section 1.1](ch1_1.md)
  - [Section 1.2](ch1_2.md)
- [Chapter 2](ch2.md)
`

	s, err := NewMarkdown().Summary(summary)
	require.NoError(t, err)

	articles := s.Parts[0].Articles
	assert.Len(t, articles, 2)

	ch1 := articles[0]
	assert.Equal(t, "Chapter 1", ch1.Title)
	assert.Len(t, ch1.Articles, 2)
	assert.Equal(t, "Section 1.1", ch1.Articles[0].Title)
	assert.Equal(t, "ch1_1.md", ch1.Articles[0].Ref)
	assert.Equal(t, 4, s.Count())
}

func TestParseDeepNesting(t *testing.T) {
	summary := `# Summary

- [Ch 1](ch1.md)
  - [S 1.1](s1.md)
    - [S 1.1.1](s1_1.md)
`

	s, err := NewMarkdown().Summary(summary)
	require.NoError(t, err)

	s111 := s.Parts[0].Articles[0].Articles[0].Articles[0]
	assert.Equal(t, "S 1.1.1", s111.Title)
	assert.Equal(t, "s1_1.md", s111.Ref)
}

func TestParseDraftChapter(t *testing.T) {
	summary := `# Summary

- [Intro](intro.md)
- [TODO Chapter]()
- Unlinked chapter
- [Conclusion](conclusion.md)
`

	s, err := NewMarkdown().Summary(summary)
	require.NoError(t, err)

	articles := s.Parts[0].Articles
	assert.Len(t, articles, 4)
	assert.Equal(t, "TODO Chapter", articles[1].Title)
	assert.Empty(t, articles[1].Ref)
	assert.Equal(t, "Unlinked chapter", articles[2].Title)
	assert.Empty(t, articles[2].Ref)
}

func TestParseParts(t *testing.T) {
	summary := `# Summary

- [Intro](intro.md)

## Part One

- [Chapter 1](ch1.md)
- [Chapter 2](ch2.md)

---

- [Appendix](appendix.md)
`

	s, err := NewMarkdown().Summary(summary)
	require.NoError(t, err)

	require.Len(t, s.Parts, 3)
	assert.Equal(t, "", s.Parts[0].Title)
	assert.Equal(t, "Intro", s.Parts[0].Articles[0].Title)

	assert.Equal(t, "Part One", s.Parts[1].Title)
	assert.Len(t, s.Parts[1].Articles, 2)

	assert.Equal(t, "", s.Parts[2].Title)
	assert.Equal(t, "Appendix", s.Parts[2].Articles[0].Title)
}

func TestParseHeadingAfterSeparatorReusesPart(t *testing.T) {
	summary := `- [Intro](intro.md)

---

### Advanced

- [Deep](deep.md)
`

	s, err := NewMarkdown().Summary(summary)
	require.NoError(t, err)

	require.Len(t, s.Parts, 2)
	assert.Equal(t, "Advanced", s.Parts[1].Title)
}

func TestParsePathsWithDirsAndAnchors(t *testing.T) {
	summary := `# Summary

- [Chapter 1](dir1/ch1.md)
  - [Section](dir1/ch1.md#section)
- [Chapter 2](dir2/subdir/ch2.md)
- [Website](https://example.com)
`

	s, err := NewMarkdown().Summary(summary)
	require.NoError(t, err)

	articles := s.Parts[0].Articles
	assert.Equal(t, "dir1/ch1.md", articles[0].Ref)
	assert.Equal(t, "dir1/ch1.md#section", articles[0].Articles[0].Ref)
	assert.Equal(t, "dir2/subdir/ch2.md", articles[1].Ref)
	assert.Equal(t, "https://example.com", articles[2].Ref)
}

func TestParseEmptySummary(t *testing.T) {
	summary := `# Summary

# Just headers
No list items here
`

	s, err := NewMarkdown().Summary(summary)
	require.NoError(t, err)

	assert.Len(t, s.Parts, 0)
	assert.Equal(t, 0, s.Count())
}

func TestParseLangs(t *testing.T) {
	langs, err := NewMarkdown().Langs(`# Languages

* [English](en/)
* [Français](fr/)
`)
	require.NoError(t, err)

	require.Len(t, langs, 2)
	assert.Equal(t, LangItem{Title: "English", Ref: "en/"}, langs[0])
	assert.Equal(t, LangItem{Title: "Français", Ref: "fr/"}, langs[1])
}
