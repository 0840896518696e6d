package platform

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenNoFollow(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("data"), 0o644))
	if err := os.Symlink("file.txt", filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	defer root.Close()

	f, err := OpenNoFollow(root, "file.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
	require.NoError(t, f.Close())

	_, err = OpenNoFollow(root, "link.txt")
	require.ErrorIs(t, err, ErrSymlink)

	_, err = OpenNoFollow(root, "missing.txt")
	require.ErrorIs(t, err, os.ErrNotExist)
}
