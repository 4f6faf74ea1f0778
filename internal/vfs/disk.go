package vfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir is a file tree rooted at a directory on disk
type Dir struct {
	root string
	fsys fs.FS
}

// NewDir returns the disk tree rooted at root
func NewDir(root string) *Dir {
	return &Dir{root: root, fsys: os.DirFS(root)}
}

// Root returns the directory on disk
func (d *Dir) Root() string { return d.root }

// Open implements fs.FS
func (d *Dir) Open(name string) (fs.File, error) {
	return d.fsys.Open(name)
}

// Abs returns the disk path of name
func (d *Dir) Abs(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(clean(name)))
}

// WriteFile writes content to a file, creating parent directories if needed
func (d *Dir) WriteFile(name string, data []byte) error {
	p := d.Abs(name)
	if parent := filepath.Dir(p); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("failed to create directory '%s': %w", parent, err)
		}
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write '%s': %w", p, err)
	}
	return nil
}

// RemoveAll removes a file or directory tree with error context
func (d *Dir) RemoveAll(name string) error {
	p := d.Abs(name)
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("failed to remove '%s': %w", p, err)
	}
	return nil
}

// MkdirAll creates a directory with better error messages
func (d *Dir) MkdirAll(name string) error {
	p := d.Abs(name)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", p, err)
	}
	return nil
}
