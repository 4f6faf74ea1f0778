package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `No "README.md" file (or is ignored)`, FileNotFound("README.md").Error())
	assert.Equal(t, `"../x.md" not in "book"`, OutOfScope("../x.md", "book").Error())
	assert.Equal(t, `Error compiling template "<inline>": boom`, Template("", errors.New("boom")).Error())
	assert.Equal(t, `page: Error compiling template "a.md": boom`, Template("a.md", errors.New("boom")).WithStage("page").Error())
}

func TestIsKindThroughWrapping(t *testing.T) {
	base := FileNotFound("SUMMARY.md")
	wrapped := fmt.Errorf("failed to parse book: %w", base)

	assert.True(t, IsKind(wrapped, KindFileNotFound))
	assert.False(t, IsKind(wrapped, KindParsing))
	assert.True(t, errors.Is(wrapped, &Error{Kind: KindFileNotFound}))

	var e *Error
	assert.True(t, errors.As(wrapped, &e))
	assert.Equal(t, "SUMMARY.md", e.File)
}

func TestIsKindNested(t *testing.T) {
	inner := Parsing("SUMMARY.md", "SUMMARY entries should have an non-empty title", nil)
	outer := Plugin("search", "hook failed", inner)

	assert.True(t, IsKind(outer, KindPlugin))
	assert.True(t, IsKind(outer, KindParsing))

	k, ok := KindOf(outer)
	assert.True(t, ok)
	assert.Equal(t, KindPlugin, k)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
