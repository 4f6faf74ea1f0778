package book

import (
	"io/fs"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/vfs"
)

// DefaultIgnores are always excluded from a book
var DefaultIgnores = []string{
	".git/",
	".DS_Store",
	"node_modules",
	"_book",
	"*.pdf",
	"*.epub",
	"*.mobi",
}

// IgnoreFiles are read from the book root, in order, and added to the ignore rules
var IgnoreFiles = []string{".ignore", ".gitignore", ".bookignore"}

// ignoreRules matches book-relative paths against gitignore patterns
type ignoreRules struct {
	patterns []gitignore.Pattern
	matcher  gitignore.Matcher
}

func newIgnoreRules() *ignoreRules {
	r := &ignoreRules{}
	r.add(DefaultIgnores...)
	return r
}

func (r *ignoreRules) add(lines ...string) {
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r.patterns = append(r.patterns, gitignore.ParsePattern(line, nil))
	}
	r.matcher = gitignore.NewMatcher(r.patterns)
}

// load adds the patterns of every ignore file found in dir
func (r *ignoreRules) load(fsys fs.FS, dir string) ([]string, error) {
	var loaded []string
	for _, name := range IgnoreFiles {
		file := path.Join(dir, name)
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			if vfs.IsNotExist(err) {
				continue
			}
			return loaded, errs.Parsing(file, "failed to read ignore file", err)
		}
		r.add(strings.Split(string(data), "\n")...)
		loaded = append(loaded, name)
	}
	return loaded, nil
}

// match reports whether name is ignored; directories end with "/"
func (r *ignoreRules) match(name string) bool {
	isDir := strings.HasSuffix(name, "/")
	name = strings.Trim(name, "/")
	if name == "" || name == "." {
		return false
	}
	return r.matcher.Match(strings.Split(name, "/"), isDir)
}
