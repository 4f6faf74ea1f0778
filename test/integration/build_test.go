package integration

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geocine/folio/internal/output"
	"github.com/geocine/folio/internal/testutil"
	th "github.com/geocine/folio/test"
)

// buildWebsite renders the book stored in dir with the repository theme and returns the output folder
func buildWebsite(t *testing.T, dir string) string {
	t.Helper()
	b := testutil.DiskBook(t, dir)

	out := t.TempDir()
	gen, err := output.New(b, output.NewFolder(out), output.Options{
		Format:         output.Website,
		DirectoryIndex: true,
		Theme:          os.DirFS(th.RepoRoot()),
	})
	require.NoError(t, err)
	require.NoError(t, gen.Generate(context.Background()))
	return out
}
