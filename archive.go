package vbf

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"sync"

	"github.com/tidwall/btree"
	"golang.org/x/sync/singleflight"

	"github.com/meigma/vbf/cache"
	"github.com/meigma/vbf/internal/block"
	"github.com/meigma/vbf/internal/index"
)

// Archive provides random access to the entries of a VBF archive.
//
// Archive reads with positional reads only, so one Archive is safe for
// concurrent use by multiple goroutines. It implements fs.FS, fs.StatFS,
// fs.ReadFileFS and fs.ReadDirFS.
type Archive struct {
	idx     *index.Index
	src     ByteSource
	closer  io.Closer
	decoder *block.Decoder
	cache   cache.BlockCache // nil = no caching
	group   singleflight.Group
	logger  *slog.Logger

	treeOnce sync.Once
	tree     *btree.BTreeG[treeItem]
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Open opens the archive file at path and validates its header.
//
// The file stays open for subsequent reads; Close releases it.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	src, err := newFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	a, err := New(src, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// New creates an Archive over src and validates its header.
//
// Validation checks, in order, the magic number, the header length bounds,
// the trailing checksum, and the consistency of the name table and block
// table. Close does not close src.
func New(src ByteSource, opts ...Option) (*Archive, error) {
	a := &Archive{
		src:     src,
		decoder: block.NewDecoder(),
	}
	for _, opt := range opts {
		opt(a)
	}

	idx, err := index.Load(src, src.Size())
	if err != nil {
		return nil, err
	}
	a.idx = idx
	a.log().Info("opened archive",
		"source", src.SourceID(),
		"files", idx.Len(),
		"blocks", idx.BlockCount(),
		"header_length", idx.HeaderLength())
	return a, nil
}

// Close releases the file opened by Open. It is a no-op for archives created
// with New.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// Len returns the number of entries in the archive.
func (a *Archive) Len() int {
	return a.idx.Len()
}

// Paths returns the stored entry names in build order.
func (a *Archive) Paths() []string {
	return append([]string(nil), a.idx.Names()...)
}

// Contains reports whether path names an entry. Lookup is case-insensitive
// and treats '\' as '/'.
func (a *Archive) Contains(path string) bool {
	_, ok := a.idx.LookupPath(path)
	return ok
}

// HeaderLength returns the size of the header region, which is also the
// offset of the data segment.
func (a *Archive) HeaderLength() uint32 {
	return a.idx.HeaderLength()
}

// BlockCount returns the total number of blocks in the archive.
func (a *Archive) BlockCount() int {
	return a.idx.BlockCount()
}

// Size returns the size of the archive in bytes.
func (a *Archive) Size() int64 {
	return a.src.Size()
}

// SourceID returns the identifier of the underlying byte source.
func (a *Archive) SourceID() string {
	return a.src.SourceID()
}

// Entry returns metadata for the entry at path.
func (a *Archive) Entry(path string) (EntryView, bool) {
	i, ok := a.idx.LookupPath(path)
	if !ok {
		return EntryView{}, false
	}
	return EntryView{a: a, i: i}, true
}

// Entries returns an iterator over every entry in archive order.
func (a *Archive) Entries() iter.Seq[EntryView] {
	return func(yield func(EntryView) bool) {
		for i := range a.idx.Len() {
			if !yield(EntryView{a: a, i: i}) {
				return
			}
		}
	}
}

