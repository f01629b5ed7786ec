package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.hcl", "a.hcl", "notes.txt", "nested/c.hcl", ".hidden/d.hcl", "scene.json.gz"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	files, err := FindFilesByExtension(root, ".hcl")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "a.hcl"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "nested", "c.hcl"),
	}, files)

	files, err = FindFilesByExtension(filepath.Join(root, "a.hcl"), ".hcl")
	require.NoError(t, err)
	require.Len(t, files, 1)

	files, err = FindFilesByExtension(root, ".txt", ".gz")
	require.NoError(t, err)
	require.Len(t, files, 2)

	require.Equal(t, []string{root, filepath.Join(root, "nested")},
		Dirs([]string{filepath.Join(root, "b.hcl"), filepath.Join(root, "nested", "c.hcl"), filepath.Join(root, "a.hcl")}))

	_, err = FindFilesByExtension(filepath.Join(root, "missing"), ".hcl")
	require.Error(t, err)
}
