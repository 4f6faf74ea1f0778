package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrontMatter(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		body        string
		description string
	}{
		{
			name: "YAML front matter",
			input: `---
title: Test Chapter
description: A short summary
tags: [intro, test]
---

# Chapter Title

This is the content.`,
			body: `# Chapter Title

This is the content.`,
			description: "A short summary",
		},
		{
			name: "TOML front matter",
			input: `+++
title = "Test Chapter"
description = "From TOML"
+++

# Chapter Title

Content here.`,
			body: `# Chapter Title

Content here.`,
			description: "From TOML",
		},
		{
			name: "No front matter",
			input: `# Chapter Title

Just content, no metadata.`,
			body: `# Chapter Title

Just content, no metadata.`,
		},
		{
			name: "Empty front matter",
			input: `---

---

# Chapter

Content.`,
			body: `# Chapter

Content.`,
		},
		{
			name: "Multiline YAML values",
			input: `---
title: Multi
description: |
  This is a long
  description
---

# Heading`,
			body:        `# Heading`,
			description: "This is a long\ndescription\n",
		},
		{
			name: "Dashes in content",
			input: `# Chapter

--- This is just dashes in content ---`,
			body: `# Chapter

--- This is just dashes in content ---`,
		},
		{
			name:  "Non string description",
			input: "---\ndescription: 12\n---\nText",
			body:  "Text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, err := SplitFrontMatter(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.body, fm.Body)
			assert.Equal(t, tt.description, fm.Description())
			assert.NotNil(t, fm.Attributes)
		})
	}
}

func TestSplitFrontMatterAttributes(t *testing.T) {
	fm, err := SplitFrontMatter("---\nauthor: Jane\norder: 2\n---\n# Hi")
	require.NoError(t, err)
	assert.Equal(t, "Jane", fm.Attributes["author"])
	assert.Equal(t, 2, fm.Attributes["order"])
}

func TestSplitFrontMatterInvalid(t *testing.T) {
	_, err := SplitFrontMatter("---\ntitle: [unclosed\n---\n# Hi")
	assert.ErrorContains(t, err, "invalid YAML front matter")

	_, err = SplitFrontMatter("+++\ntitle = \n+++\n# Hi")
	assert.ErrorContains(t, err, "invalid TOML front matter")
}

func TestDetectDirection(t *testing.T) {
	assert.Equal(t, LTR, DetectDirection("Hello world"))
	assert.Equal(t, RTL, DetectDirection("مرحبا بالعالم"))
	assert.Equal(t, RTL, DetectDirection("  123 שלום"))
	assert.Equal(t, LTR, DetectDirection("# 42 Title"))
	assert.Equal(t, "", DetectDirection("123 !? ..."))
	assert.Equal(t, "", DetectDirection(""))
}
