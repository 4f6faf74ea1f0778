// Package testutil holds helpers shared by the tests of the book packages.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/geocine/folio/internal/book"
	"github.com/geocine/folio/internal/vfs"
)

// WriteFiles writes files (slash path -> content) under dir
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, dir, name, content)
	}
}

// WriteFile writes content to a file in the test directory
func WriteFile(t *testing.T, dir, path, content string) {
	t.Helper()
	fullPath := filepath.Join(dir, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
	require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
}

// ReadFile reads content from a test file
func ReadFile(t *testing.T, dir, path string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
	require.NoError(t, err)
	return string(content)
}

// FileExists checks if a file exists
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}

// MemBook parses an in-memory book
func MemBook(t *testing.T, files map[string]string) *book.Book {
	t.Helper()
	b := book.New(vfs.NewMemory(files), ".", book.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, b.Parse(context.Background()))
	return b
}

// DiskBook parses the book stored in dir
func DiskBook(t *testing.T, dir string) *book.Book {
	t.Helper()
	b := book.New(vfs.NewDir(dir), ".", book.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, b.Parse(context.Background()))
	return b
}

var (
	spaces      = regexp.MustCompile(`\s+`)
	spaceInTags = regexp.MustCompile(`>\s+<`)
)

// NormalizeHTML normalizes HTML for comparison (whitespace between tags)
func NormalizeHTML(html string) string {
	html = spaces.ReplaceAllString(html, " ")
	html = spaceInTags.ReplaceAllString(html, "><")
	return strings.TrimSpace(html)
}
