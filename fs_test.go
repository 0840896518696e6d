package vbf

import (
	"io"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/vbf/internal/testutil"
)

func TestArchiveFS(t *testing.T) {
	t.Parallel()

	a, _ := createTestArchive(t, map[string][]byte{
		"readme.txt":          []byte("read me"),
		"docs/guide.md":       testutil.Compressible(100_000),
		"docs/api/index.html": []byte("<html></html>"),
		"img/logo.png":        testutil.Random(7, 70_000),
	})

	require.NoError(t, fstest.TestFS(a,
		"readme.txt",
		"docs/guide.md",
		"docs/api/index.html",
		"img/logo.png",
	))
}

func TestArchiveReadDir(t *testing.T) {
	t.Parallel()

	a, _ := createTestArchive(t, map[string][]byte{
		"b.txt":     []byte("b"),
		"a/x.txt":   []byte("x"),
		"a/y/z.txt": []byte("z"),
		"c/d.txt":   []byte("d"),
	})

	entries, err := a.ReadDir(".")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a", "b.txt", "c"}, names)
	assert.True(t, entries[0].IsDir())
	assert.False(t, entries[1].IsDir())

	entries, err = a.ReadDir("a")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "x.txt", entries[0].Name())
	assert.Equal(t, "y", entries[1].Name())

	_, err = a.ReadDir("missing")
	require.ErrorIs(t, err, fs.ErrNotExist)
	_, err = a.ReadDir("../a")
	require.ErrorIs(t, err, fs.ErrInvalid)

	info, err := a.Stat("a/y")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "y", info.Name())

	info, err = a.Stat("a/x.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Size())
	assert.Equal(t, fs.FileMode(0o444), info.Mode())
}

func TestArchiveOpenFile(t *testing.T) {
	t.Parallel()

	want := testutil.Compressible(150_000)
	a, _ := createTestArchive(t, map[string][]byte{"dir/file.txt": want})

	f, err := a.Open("dir/file.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	require.NoError(t, f.Close())
	_, err = f.Read(make([]byte, 1))
	require.ErrorIs(t, err, fs.ErrClosed)

	got, err = fs.ReadFile(a, "dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = a.Open("nope.txt")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestArchiveFSHidesInvalidNames(t *testing.T) {
	t.Parallel()

	data := testutil.RawArchive(t,
		[]string{"ok.txt", "../escape.txt", "/abs.txt"},
		[][]byte{[]byte("ok"), []byte("escape"), []byte("abs")},
	)
	a, err := New(NewBytesSource(data, ""))
	require.NoError(t, err)

	entries, err := a.ReadDir(".")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok.txt", entries[0].Name())

	// Flat access by name still works.
	assert.True(t, a.Contains("../escape.txt"))
}

func TestArchiveFSRejectsBackslashNames(t *testing.T) {
	t.Parallel()

	a, _ := createTestArchive(t, map[string][]byte{
		"docs/guide.md":       []byte("guide"),
		"docs/api/index.html": []byte("<html></html>"),
	})

	_, err := a.Open(`docs\guide.md`)
	require.ErrorIs(t, err, fs.ErrNotExist)
	_, err = fs.ReadFile(a, `docs\guide.md`)
	require.ErrorIs(t, err, fs.ErrNotExist)
	_, err = a.Stat(`docs\api`)
	require.ErrorIs(t, err, fs.ErrNotExist)
	_, err = a.ReadDir(`docs\api`)
	require.ErrorIs(t, err, fs.ErrNotExist)
	_, err = a.Open(`docs\api`)
	require.ErrorIs(t, err, fs.ErrNotExist)

	// Name lookups outside fs.FS still accept either separator.
	assert.True(t, a.Contains(`docs\guide.md`))
	assert.Equal(t, []byte("guide"), extract(t, a, `docs\guide.md`))
	_, ok := a.Entry(`DOCS\API\index.html`)
	assert.True(t, ok)
}
