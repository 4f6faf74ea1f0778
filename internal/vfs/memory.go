package vfs

import (
	"io/fs"
	"strings"
	"sync"
	"testing/fstest"
	"time"
)

// Memory is an in-memory file tree, used for tests and for rendering without touching disk
type Memory struct {
	mu    sync.RWMutex
	files fstest.MapFS
	now   func() time.Time
}

// NewMemory returns a tree holding files (path -> content)
func NewMemory(files map[string]string) *Memory {
	m := &Memory{files: fstest.MapFS{}, now: time.Now}
	for name, content := range files {
		m.files[clean(name)] = &fstest.MapFile{Data: []byte(content), Mode: 0o644, ModTime: m.now()}
	}
	return m
}

// Open implements fs.FS
func (m *Memory) Open(name string) (fs.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.files.Open(name)
}

// WriteFile stores data under name
func (m *Memory) WriteFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[clean(name)] = &fstest.MapFile{Data: buf, Mode: 0o644, ModTime: m.now()}
	return nil
}

// RemoveAll drops name and everything below it
func (m *Memory) RemoveAll(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = clean(name)
	for p := range m.files {
		if name == "." || p == name || strings.HasPrefix(p, name+"/") {
			delete(m.files, p)
		}
	}
	return nil
}

// MkdirAll records an explicit directory entry
func (m *Memory) MkdirAll(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = clean(name)
	if name == "." {
		return nil
	}
	if _, ok := m.files[name]; !ok {
		m.files[name] = &fstest.MapFile{Mode: fs.ModeDir | 0o755, ModTime: m.now()}
	}
	return nil
}

// Files returns a snapshot of every regular file (path -> content)
func (m *Memory) Files() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.files))
	for p, f := range m.files {
		if f.Mode.IsDir() {
			continue
		}
		out[p] = string(f.Data)
	}
	return out
}
