package testhelpers

import (
	"path/filepath"
	"runtime"
)

// RepoRoot returns the absolute path to the repository root.
func RepoRoot() string {
	// this file lives at <repo>/test/helpers.go
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(filepath.Dir(file))
}

// IntegrationData joins under test/integration/testdata/...
func IntegrationData(parts ...string) string {
	base := []string{RepoRoot(), "test", "integration", "testdata"}
	return filepath.Join(append(base, parts...)...)
}

// SuitePath builds a path under test/integration/testdata/suites/...
func SuitePath(parts ...string) string {
	return IntegrationData(append([]string{"suites"}, parts...)...)
}
