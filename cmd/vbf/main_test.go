package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/vbf"
	"github.com/meigma/vbf/internal/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func buildFixture(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	testutil.WriteTree(t, src, map[string][]byte{
		"readme.txt":         []byte("hello"),
		"images/a.png":       testutil.Random(1, 100_000),
		"images/icons/b.png": testutil.Compressible(80_000),
	})
	archive := filepath.Join(t.TempDir(), "fixture.vbf")
	out, err := run(t, "build", "--sorted", src, archive)
	require.NoError(t, err)
	assert.Contains(t, out, "3 files")
	return archive
}

func TestListAndTree(t *testing.T) {
	t.Parallel()
	archive := buildFixture(t)

	out, err := run(t, "list", archive)
	require.NoError(t, err)
	assert.Equal(t, []string{"images/a.png", "images/icons/b.png", "readme.txt"}, strings.Fields(out))

	out, err = run(t, "list", "-m", "images/*", archive)
	require.NoError(t, err)
	assert.Equal(t, []string{"images/a.png", "images/icons/b.png"}, strings.Fields(out))

	out, err = run(t, "list", "-l", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "100000")

	out, err = run(t, "tree", archive)
	require.NoError(t, err)
	assert.Equal(t, "images/\n  a.png\n  icons/\n    b.png\nreadme.txt\n", out)
}

func TestCat(t *testing.T) {
	t.Parallel()
	archive := buildFixture(t)

	out, err := run(t, "cat", archive, "README.TXT")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	out, err = run(t, "cat", "--max-blocks", "1", archive, "images/a.png")
	require.NoError(t, err)
	assert.Len(t, out, 65536)

	_, err = run(t, "cat", archive, "missing")
	require.ErrorIs(t, err, vbf.ErrNotFound)
}

func TestInfoAndVerify(t *testing.T) {
	t.Parallel()
	archive := buildFixture(t)

	out, err := run(t, "info", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "files:         3")
	assert.Contains(t, out, "decoded bytes: 180005")

	out, err = run(t, "verify", archive)
	require.NoError(t, err)
	assert.Equal(t, "ok: 3 files\n", out)

	_, err = run(t, "info", filepath.Join(t.TempDir(), "nope.vbf"))
	require.Error(t, err)
}

func TestExtract(t *testing.T) {
	t.Parallel()
	archive := buildFixture(t)
	dest := t.TempDir()

	_, err := run(t, "extract", "-o", dest, "-m", "images/**", archive)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dest, "images", "icons", "b.png"))
	assert.NoFileExists(t, filepath.Join(dest, "readme.txt"))

	data, err := os.ReadFile(filepath.Join(dest, "images", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, testutil.Random(1, 100_000), data)
}

func TestBlockCacheFlags(t *testing.T) {
	t.Parallel()
	archive := buildFixture(t)
	cacheDir := t.TempDir()

	for range 2 {
		out, err := run(t, "--cache-dir", cacheDir, "cat", archive, "images/icons/b.png")
		require.NoError(t, err)
		assert.Len(t, out, 80_000)
	}
	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	out, err := run(t, "--cache-blocks", "8", "cat", archive, "readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestPushRequiresTag(t *testing.T) {
	t.Parallel()
	archive := buildFixture(t)

	_, err := run(t, "push", "--plain-http", "-u", "x", "-p", "y", archive, "localhost:5000/assets")
	require.Error(t, err)
}
