package langs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocine/folio/internal/parser"
)

func TestLangs(t *testing.T) {
	l := New("LANGS.md", []parser.LangItem{
		{Title: "English", Ref: "en/"},
		{Title: "Français", Ref: "./fr"},
		{Title: "Root", Ref: "./"},
	})

	assert.Equal(t, 2, l.Count())
	assert.Equal(t, "LANGS.md", l.Path())

	def, ok := l.Default()
	require.True(t, ok)
	assert.Equal(t, "en", def.ID())
	assert.Equal(t, "en", def.Folder)
	assert.Equal(t, "fr", l.List()[1].ID())

	list := l.Context()["list"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, map[string]any{"id": "fr", "title": "Français"}, list[1])
}

func TestEmptyLangs(t *testing.T) {
	l := Empty()
	_, ok := l.Default()
	assert.False(t, ok)
	assert.Equal(t, 0, l.Count())
}
