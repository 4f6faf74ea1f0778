package glossary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/geocine/folio/internal/parser"
)

func TestNameToID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello_world"},
		{"C++ (language)", "c++_language"},
		{"What's up?", "whats_up"},
		{"node.js", "nodejs"},
		{"a/b\\c", "abc"},
		{"  Spaced  ", "__spaced__"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NameToID(c.in), "input=%q", c.in)
	}
}

func TestLookupAndAnnotations(t *testing.T) {
	g := New("GLOSSARY.md", []parser.GlossaryItem{
		{Name: "Magic", Description: "Sufficiently advanced technology"},
		{Name: "Hello World", Description: "First program"},
	}, nil)

	assert.Equal(t, 2, g.Count())
	assert.True(t, g.Exists())

	e, ok := g.Find("hello world")
	require.True(t, ok)
	assert.Equal(t, "Hello World", e.Name)

	e, ok = g.Get("magic")
	require.True(t, ok)
	assert.Equal(t, "Sufficiently advanced technology", e.Description)

	_, ok = g.Get("missing")
	assert.False(t, ok)

	ann := g.Annotations()
	require.Len(t, ann, 2)
	assert.Equal(t, "/GLOSSARY.md#magic", ann[0].Href)
	assert.Equal(t, "/GLOSSARY.md#hello_world", ann[1].Href)
}

func TestDuplicateLastWins(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := New("GLOSSARY.md", []parser.GlossaryItem{
		{Name: "Term", Description: "first"},
		{Name: "Other", Description: "other"},
		{Name: "term", Description: "second"},
	}, zap.New(core))

	assert.Equal(t, 2, g.Count())
	e, ok := g.Get("term")
	require.True(t, ok)
	assert.Equal(t, "second", e.Description)
	assert.Equal(t, "term", g.Entries()[0].Name)
	assert.Equal(t, 1, logs.FilterMessage("Duplicate glossary entry replaces earlier definition").Len())
}

func TestEmpty(t *testing.T) {
	g := Empty()
	assert.False(t, g.Exists())
	assert.Equal(t, 0, g.Count())
	assert.Empty(t, g.Annotations())
	assert.Equal(t, "", g.Context()["path"])
}
