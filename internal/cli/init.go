// Package cli holds the commands that prepare a book on disk.
package cli

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	"go.uber.org/zap"

	"github.com/geocine/folio/internal/config"
	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/langs"
	"github.com/geocine/folio/internal/location"
	"github.com/geocine/folio/internal/parser"
	"github.com/geocine/folio/internal/summary"
	"github.com/geocine/folio/internal/vfs"
)

const (
	defaultReadme  = "# Introduction\n"
	defaultSummary = "# Summary\n\n* [Introduction](README.md)\n"
)

// InitOptions captures options for initializing a book
type InitOptions struct {
	// Title is written to book.json when the book has no configuration yet
	Title  string
	Logger *zap.Logger
}

// Init scaffolds the book stored in fsys: each book (or each language of a multilingual book)
// gets a readme and a summary when missing, and every file the summary references is created
// with the title of its entry. It returns the created files.
func Init(fsys vfs.FS, opts InitOptions) ([]string, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := fsys.MkdirAll("."); err != nil {
		return nil, err
	}

	var created []string
	cfg, err := config.Load(fsys, ".", nil)
	if err != nil {
		return nil, err
	}
	if !cfg.Exists() && opts.Title != "" {
		data, err := json.MarshalIndent(map[string]any{"title": opts.Title}, "", "    ")
		if err != nil {
			return nil, err
		}
		if err := fsys.WriteFile("book.json", append(data, '\n')); err != nil {
			return nil, err
		}
		created = append(created, "book.json")
	}

	languages, err := readLangs(fsys, cfg.Structure().Langs)
	if err != nil {
		return nil, err
	}
	roots := []string{"."}
	if languages.Count() > 0 {
		roots = roots[:0]
		for _, lang := range languages.List() {
			root, err := location.ResolveInRoot(".", lang.Folder)
			if err != nil {
				return nil, err
			}
			roots = append(roots, root)
		}
	}

	for _, root := range roots {
		files, err := initBook(fsys, root, cfg.Structure())
		if err != nil {
			return created, err
		}
		created = append(created, files...)
	}
	for _, f := range created {
		log.Info("Created file", zap.String("file", f))
	}
	return created, nil
}

func readLangs(fsys fs.FS, name string) (*langs.Langs, error) {
	p, ok := parser.ForFile(name)
	if !ok {
		return langs.Empty(), nil
	}
	file, found := vfs.FindFile(fsys, path.Dir(name), path.Base(name))
	if !found {
		return langs.Empty(), nil
	}
	file = path.Join(path.Dir(name), file)
	src, err := vfs.ReadString(fsys, file)
	if err != nil {
		return nil, err
	}
	items, err := p.Langs(src)
	if err != nil {
		return nil, errs.Parsing(file, "failed to parse languages", err)
	}
	return langs.New(file, items), nil
}

// initBook creates the missing readme, summary and articles of the book at root
func initBook(fsys vfs.FS, root string, structure config.Structure) ([]string, error) {
	var created []string
	write := func(name, content string) error {
		if err := fsys.WriteFile(name, []byte(content)); err != nil {
			return err
		}
		created = append(created, name)
		return nil
	}

	readme, ok := find(fsys, root, structure.Readme)
	if !ok {
		if err := write(readme, defaultReadme); err != nil {
			return created, err
		}
	}
	summaryFile, ok := find(fsys, root, structure.Summary)
	if !ok {
		if err := write(summaryFile, defaultSummary); err != nil {
			return created, err
		}
	}

	p, ok := parser.ForFile(summaryFile)
	if !ok {
		return created, errs.Parsing(summaryFile, "no parser for summary", nil)
	}
	src, err := vfs.ReadString(fsys, summaryFile)
	if err != nil {
		return created, err
	}
	spec, err := p.Summary(src)
	if err != nil {
		return created, errs.Parsing(summaryFile, "failed to parse summary", err)
	}
	s, err := summary.Build(location.Relative(root, summaryFile), spec, location.Relative(root, readme))
	if err != nil {
		return created, errs.Parsing(summaryFile, "failed to build summary", err)
	}

	var walkErr error
	s.Walk(func(a *summary.Article) bool {
		if !a.HasLocation() || a.IsExternal() {
			return true
		}
		file, err := location.ResolveInRoot(root, a.Path)
		if err != nil {
			walkErr = err
			return false
		}
		if vfs.Exists(fsys, file) {
			return true
		}
		if err := write(file, fmt.Sprintf("# %s\n", a.Title)); err != nil {
			walkErr = err
			return false
		}
		return true
	})
	return created, walkErr
}

// find returns the real name of a structural file under root, or its default location
func find(fsys fs.FS, root, name string) (string, bool) {
	dir := path.Join(root, path.Dir(name))
	if found, ok := vfs.FindFile(fsys, dir, path.Base(name)); ok {
		return path.Join(dir, found), true
	}
	return path.Join(root, name), false
}
