// Package vfs provides the file systems books are read from and outputs are written to.
package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// FS is a tree of files addressed with slash separated paths that can also be written to
type FS interface {
	fs.FS
	WriteFile(name string, data []byte) error
	RemoveAll(name string) error
	MkdirAll(name string) error
}

// ReadString reads a file into a string with error context
func ReadString(fsys fs.FS, name string) (string, error) {
	data, err := fs.ReadFile(fsys, clean(name))
	if err != nil {
		return "", fmt.Errorf("failed to read '%s': %w", name, err)
	}
	return string(data), nil
}

// Exists reports whether name exists in fsys
func Exists(fsys fs.FS, name string) bool {
	_, err := fs.Stat(fsys, clean(name))
	return err == nil
}

// FileExists reports whether name exists and is a regular file
func FileExists(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, clean(name))
	return err == nil && !info.IsDir()
}

// IsNotExist reports whether err means a missing file
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// ListFiles lists the regular files directly inside dir, in natural order
func ListFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, clean(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory '%s': %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	sort.Sort(natural.StringSlice(files))
	return files, nil
}

// FindFile returns the real name of filename inside dir, comparing names case-insensitively.
// The boolean is false when no file matches.
func FindFile(fsys fs.FS, dir, filename string) (string, bool) {
	files, err := ListFiles(fsys, dir)
	if err != nil {
		return "", false
	}
	for _, f := range files {
		if strings.EqualFold(f, filename) {
			return f, true
		}
	}
	return "", false
}

// ListAllFiles walks dir and returns every regular file relative to dir, in natural order.
// skip is called with the relative path of each entry (directories end with "/") and prunes it
// when it returns true.
func ListAllFiles(fsys fs.FS, dir string, skip func(rel string) bool) ([]string, error) {
	root := clean(dir)
	var files []string
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel := strings.TrimPrefix(p, root+"/")
		if root == "." {
			rel = p
		}
		if d.IsDir() {
			if skip != nil && skip(rel+"/") {
				return fs.SkipDir
			}
			return nil
		}
		if skip != nil && skip(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list '%s': %w", dir, err)
	}
	sort.Sort(natural.StringSlice(files))
	return files, nil
}

// CopyFile copies a file between two trees
func CopyFile(dst FS, dstName string, src fs.FS, srcName string) error {
	data, err := fs.ReadFile(src, clean(srcName))
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", srcName, err)
	}
	if err := dst.WriteFile(dstName, data); err != nil {
		return fmt.Errorf("failed to copy '%s' to '%s': %w", srcName, dstName, err)
	}
	return nil
}

// Sub returns the subtree rooted at dir, or fsys itself for the root
func Sub(fsys fs.FS, dir string) (fs.FS, error) {
	dir = clean(dir)
	if dir == "." {
		return fsys, nil
	}
	return fs.Sub(fsys, dir)
}

func clean(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "."
	}
	return path.Clean(name)
}
