package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocine/folio/internal/errs"
)

func TestIsExternal(t *testing.T) {
	assert.True(t, IsExternal("http://google.fr"))
	assert.True(t, IsExternal("https://example.com/a#b"))
	assert.True(t, IsExternal("mailto:someone@example.com"))
	assert.False(t, IsExternal("test.md"))
	assert.False(t, IsExternal("folder/test.md"))
	assert.False(t, IsExternal("/folder/test.md"))
	assert.False(t, IsExternal("#anchor"))
}

func TestIsAnchor(t *testing.T) {
	assert.True(t, IsAnchor("#test"))
	assert.False(t, IsAnchor("https://google.fr#test"))
	assert.False(t, IsAnchor("test.md#test"))
	assert.False(t, IsAnchor("test.md"))
	assert.False(t, IsAnchor(""))
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"test.md", "test.md"},
		{"folder\\test.md", "folder/test.md"},
		{"a/../b/./c.md", "b/c.md"},
		{"dir/", "dir/"},
		{"", "."},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.in), "input=%s", c.in)
	}
}

func TestToAbsolute(t *testing.T) {
	cases := []struct {
		href, dir, outdir string
		want              string
	}{
		{"http://google.fr", "test", "", "http://google.fr"},
		{"/test.png", "folder", "", "test.png"},
		{"test.png", "folder", "", "folder/test.png"},
		{"/test.png", "folder", "folder", "../test.png"},
		{"test.png", "folder", "folder", "test.png"},
		{"../test.png", "folder", "", "test.png"},
		{"test.png", "folder/sub", "folder", "sub/test.png"},
		{"data:image/png;base64,AAAA", "folder", "", "data:image/png;base64,AAAA"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ToAbsolute(c.href, c.dir, c.outdir), "href=%s dir=%s outdir=%s", c.href, c.dir, c.outdir)
	}
}

func TestRelative(t *testing.T) {
	assert.Equal(t, "test.md", Relative(".", "test.md"))
	assert.Equal(t, "../test.md", Relative("folder", "test.md"))
	assert.Equal(t, "../b/c.md", Relative("a", "b/c.md"))
	assert.Equal(t, "sub/", Relative("a", "a/sub/"))
}

func TestSetExtension(t *testing.T) {
	assert.Equal(t, "test.html", SetExtension("test.md", ".html"))
	assert.Equal(t, "a/b/test.json", SetExtension("a/b/test.md", ".json"))
	assert.Equal(t, "noext.html", SetExtension("noext", ".html"))
}

func TestPathToRoot(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"file.html", ""},
		{"a/file.html", "../"},
		{"a/b/file.html", "../../"},
		{"a/b/c/file.html", "../../../"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, PathToRoot(c.in), "input=%s", c.in)
	}
}

func TestResolveInRoot(t *testing.T) {
	p, err := ResolveInRoot("book", "test.md")
	require.NoError(t, err)
	assert.Equal(t, "book/test.md", p)

	p, err = ResolveInRoot("book", "folder", "/test.md")
	require.NoError(t, err)
	assert.Equal(t, "book/test.md", p)

	p, err = ResolveInRoot(".", "a", "b.md")
	require.NoError(t, err)
	assert.Equal(t, "a/b.md", p)

	_, err = ResolveInRoot("book", "../secret.md")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindFileOutOfScope))

	_, err = ResolveInRoot(".", "../escape.md")
	assert.True(t, errs.IsKind(err, errs.KindFileOutOfScope))
}

func TestIsInRoot(t *testing.T) {
	assert.True(t, IsInRoot(".", "a.md"))
	assert.True(t, IsInRoot("book", "book/a.md"))
	assert.True(t, IsInRoot("book", "book"))
	assert.False(t, IsInRoot("book", "bookish/a.md"))
	assert.False(t, IsInRoot("book", "other/a.md"))
}
