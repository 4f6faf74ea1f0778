package output

import (
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/location"
	"github.com/geocine/folio/internal/vfs"
)

// FileSink is where an output writes the generated files
type FileSink interface {
	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	// CopyFile copies srcName of src to dst inside the sink
	CopyFile(dst string, src fs.FS, srcName string) error
	Exists(name string) bool
	// Root is the folder of the sink inside its tree
	Root() string
	// Clean removes everything under the root
	Clean() error
	// List returns every file of the sink relative to its root
	List() ([]string, error)
	// Sub returns the sink writing into dir
	Sub(dir string) FileSink
}

// Sink is a FileSink over a writable tree
type Sink struct {
	fs   vfs.FS
	root string
}

// NewSink writes under root in fsys
func NewSink(fsys vfs.FS, root string) *Sink {
	return &Sink{fs: fsys, root: strings.TrimSuffix(location.Normalize(root), "/")}
}

// NewFolder writes to a directory on disk
func NewFolder(dir string) *Sink {
	return NewSink(vfs.NewDir(dir), ".")
}

// NewMemory keeps the generated files in memory
func NewMemory() *Sink {
	return NewSink(vfs.NewMemory(nil), ".")
}

// FS returns the tree the sink writes to
func (s *Sink) FS() vfs.FS { return s.fs }

func (s *Sink) Root() string { return s.root }

func (s *Sink) resolve(name string) (string, error) {
	return location.ResolveInRoot(s.root, name)
}

func (s *Sink) WriteFile(name string, data []byte) error {
	p, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := s.fs.WriteFile(p, data); err != nil {
		return errs.Output(name, "failed to write file", err)
	}
	return nil
}

func (s *Sink) ReadFile(name string) ([]byte, error) {
	p, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.fs, p)
	if err != nil {
		return nil, errs.Output(name, "failed to read generated file", err)
	}
	return data, nil
}

func (s *Sink) CopyFile(dst string, src fs.FS, srcName string) error {
	p, err := s.resolve(dst)
	if err != nil {
		return err
	}
	if err := vfs.CopyFile(s.fs, p, src, srcName); err != nil {
		return errs.Output(dst, "failed to copy file", err)
	}
	return nil
}

func (s *Sink) Exists(name string) bool {
	p, err := s.resolve(name)
	if err != nil {
		return false
	}
	return vfs.Exists(s.fs, p)
}

func (s *Sink) Clean() error {
	if s.root != "." {
		if err := s.fs.RemoveAll(s.root); err != nil {
			return errs.Output(s.root, "failed to clean output folder", err)
		}
	} else {
		entries, err := fs.ReadDir(s.fs, ".")
		if err != nil && !vfs.IsNotExist(err) {
			return errs.Output(s.root, "failed to clean output folder", err)
		}
		for _, e := range entries {
			if err := s.fs.RemoveAll(e.Name()); err != nil {
				return errs.Output(s.root, "failed to clean output folder", err)
			}
		}
	}
	if err := s.fs.MkdirAll(s.root); err != nil {
		return errs.Output(s.root, "failed to create output folder", err)
	}
	return nil
}

func (s *Sink) List() ([]string, error) {
	files, err := vfs.ListAllFiles(s.fs, s.root, nil)
	if err != nil {
		return nil, errs.Output(s.root, "failed to list generated files", err)
	}
	return files, nil
}

func (s *Sink) Sub(dir string) FileSink {
	return NewSink(s.fs, path.Join(s.root, dir))
}

// uniqueName returns name, or name with a counter before its extension when a file
// with that name already exists in the sink
func uniqueName(sink FileSink, name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	out := name
	for i := 1; sink.Exists(out); i++ {
		out = base + "_" + strconv.Itoa(i) + ext
	}
	return out
}
