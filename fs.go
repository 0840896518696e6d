package vbf

import (
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/tidwall/btree"

	"github.com/meigma/vbf/internal/format"
	"github.com/meigma/vbf/internal/pathutil"
)

// Interface compliance.
var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.ReadDirFS  = (*Archive)(nil)
)

// treeItem is a file or synthesized directory in the fs.FS view.
type treeItem struct {
	name  string
	dir   bool
	entry int
}

func treeItemLess(a, b treeItem) bool {
	if a.name != b.name {
		return a.name < b.name
	}
	return !a.dir && b.dir
}

// fsTree returns the ordered set of files and directories, building it on
// first use. Names that are not valid fs.FS paths are left out.
func (a *Archive) fsTree() *btree.BTreeG[treeItem] {
	a.treeOnce.Do(func() {
		t := btree.NewBTreeG(treeItemLess)
		for i, name := range a.idx.Names() {
			name = format.NormalizePath(name)
			if !fs.ValidPath(name) || name == "." {
				a.log().Debug("entry hidden from fs view", "path", name)
				continue
			}
			t.Set(treeItem{name: name, entry: i})
			for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
				if _, ok := t.Get(treeItem{name: dir, dir: true}); ok {
					break
				}
				t.Set(treeItem{name: dir, dir: true})
			}
		}
		a.tree = t
	})
	return a.tree
}

// fsHidden reports whether name can never resolve in the fs.FS view. The
// view shows stored names with '\\' turned into '/', so a name that still
// holds a backslash names nothing.
func fsHidden(name string) bool {
	return strings.ContainsRune(name, '\\')
}

// isDir reports whether name is a synthesized directory.
func (a *Archive) isDir(name string) bool {
	if name == "." {
		return true
	}
	if fsHidden(name) {
		return false
	}
	_, ok := a.fsTree().Get(treeItem{name: format.NormalizePath(name), dir: true})
	return ok
}

// Open implements fs.FS.
//
// Files stream their content block by block. Directories are synthesized
// from the '/' separators in stored names.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if fsHidden(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrNotFound}
	}

	if i, ok := a.idx.LookupPath(name); ok {
		r, err := a.newEntryReader(i, 0)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &openFile{r: r, info: a.fileInfo(i, path.Base(name))}, nil
	}

	if a.isDir(name) {
		return &openDir{a: a, name: name}, nil
	}

	return nil, &fs.PathError{Op: "open", Path: name, Err: ErrNotFound}
}

// Stat implements fs.StatFS.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if fsHidden(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: ErrNotFound}
	}
	if i, ok := a.idx.LookupPath(name); ok {
		return a.fileInfo(i, path.Base(name)), nil
	}
	if a.isDir(name) {
		return dirInfo(path.Base(name)), nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: ErrNotFound}
}

// ReadDir implements fs.ReadDirFS.
//
// ReadDir returns the entries of the named directory sorted by name.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	if !a.isDir(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrNotFound}
	}
	return a.readDir(name), nil
}

func (a *Archive) readDir(name string) []fs.DirEntry {
	prefix := pathutil.DirPrefix(format.NormalizePath(name))

	entries := make([]fs.DirEntry, 0)
	a.fsTree().Ascend(treeItem{name: prefix}, func(item treeItem) bool {
		if !strings.HasPrefix(item.name, prefix) {
			return false
		}
		rest, direct := pathutil.Child(item.name, prefix)
		if !direct {
			return true
		}
		if item.dir {
			entries = append(entries, fs.FileInfoToDirEntry(dirInfo(rest)))
		} else {
			entries = append(entries, fs.FileInfoToDirEntry(a.fileInfo(item.entry, rest)))
		}
		return true
	})
	return entries
}

func (a *Archive) fileInfo(i int, name string) fileInfo {
	return fileInfo{name: name, size: int64(a.idx.Record(i).OriginalSize)} //nolint:gosec // sizes beyond int64 cannot be stored
}

func dirInfo(name string) fileInfo {
	return fileInfo{name: name, dir: true}
}

// fileInfo implements fs.FileInfo for entries and synthesized directories.
// Archives carry no modes or times.
type fileInfo struct {
	name string
	size int64
	dir  bool
}

func (fi fileInfo) Name() string { return fi.name }
func (fi fileInfo) Size() int64  { return fi.size }
func (fi fileInfo) IsDir() bool  { return fi.dir }
func (fi fileInfo) Sys() any     { return nil }

func (fi fileInfo) ModTime() time.Time { return time.Time{} }

func (fi fileInfo) Mode() fs.FileMode {
	if fi.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

// openFile implements fs.File for an entry.
type openFile struct {
	r      *entryReader
	info   fileInfo
	closed bool
}

func (f *openFile) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

func (f *openFile) Read(p []byte) (int, error) {
	if f.closed {
		return 0, &fs.PathError{Op: "read", Path: f.info.name, Err: fs.ErrClosed}
	}
	return f.r.Read(p)
}

// WriteTo lets io.Copy stream whole blocks.
func (f *openFile) WriteTo(w io.Writer) (int64, error) {
	if f.closed {
		return 0, &fs.PathError{Op: "read", Path: f.info.name, Err: fs.ErrClosed}
	}
	return f.r.WriteTo(w)
}

func (f *openFile) Close() error {
	if f.closed {
		return &fs.PathError{Op: "close", Path: f.info.name, Err: fs.ErrClosed}
	}
	f.closed = true
	return nil
}

// openDir implements fs.ReadDirFile for synthesized directories.
type openDir struct {
	a       *Archive
	name    string
	entries []fs.DirEntry
	read    bool
}

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) {
	return dirInfo(path.Base(d.name)), nil
}

func (d *openDir) Close() error {
	return nil
}

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.read {
		d.entries = d.a.readDir(d.name)
		d.read = true
	}
	if n <= 0 {
		entries := d.entries
		d.entries = nil
		return entries, nil
	}
	if len(d.entries) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(d.entries))
	entries := d.entries[:n]
	d.entries = d.entries[n:]
	return entries, nil
}
