package walk

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func names(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "Textures/Hero.PNG", "png")
	writeFile(t, root, "b.txt", "bb")
	writeFile(t, root, "a/deep/nested/file.bin", "1234")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "dir"), 0o755))

	files, err := Files(root, Options{})
	require.NoError(t, err)

	got := names(files)
	sort.Strings(got)
	assert.Equal(t, []string{"a/deep/nested/file.bin", "b.txt", "textures/hero.png"}, got)

	for _, f := range files {
		if f.Name == "textures/hero.png" {
			assert.Equal(t, "Textures/Hero.PNG", f.Rel)
			assert.Equal(t, int64(3), f.Size)
			assert.Equal(t, filepath.Join(root, "Textures", "Hero.PNG"), f.Path)
		}
	}
}

func TestFiles_Sorted(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, rel := range []string{"z.txt", "m/b.txt", "a.txt", "m/a.txt"} {
		writeFile(t, root, rel, rel)
	}

	first, err := Files(root, Options{Sorted: true})
	require.NoError(t, err)
	second, err := Files(root, Options{Sorted: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "m/a.txt", "m/b.txt", "z.txt"}, names(first))
	assert.Equal(t, names(first), names(second))
}

func TestFiles_SkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "real.txt", "real")
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))

	var skipped []string
	files, err := Files(root, Options{Skipped: func(p string) { skipped = append(skipped, p) }})
	require.NoError(t, err)

	assert.Equal(t, []string{"real.txt"}, names(files))
	assert.Equal(t, []string{filepath.Join(root, "link.txt")}, skipped)
}

func TestFiles_NotADirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "file", "x")

	_, err := Files(filepath.Join(root, "file"), Options{})
	require.Error(t, err)

	_, err = Files(filepath.Join(root, "missing"), Options{})
	require.Error(t, err)
}
