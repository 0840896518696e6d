package vbf

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"

	"github.com/meigma/vbf/cache"
	"github.com/meigma/vbf/internal/format"
)

// Extract writes the decoded content of the entry at path to w.
//
// Extract on a path that is not in the archive writes nothing and returns
// nil. Callers that need to tell the cases apart use Contains or ReadFile.
//
// Blocks are decoded in order and written as soon as they are decoded. A
// block that cannot be read, inflated or written aborts the call with a
// *CorruptBlockError; the Archive remains usable.
func (a *Archive) Extract(path string, w io.Writer, opts ...ExtractOption) error {
	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	i, ok := a.idx.LookupPath(path)
	if !ok {
		a.log().Debug("extract miss", "path", path)
		return nil
	}
	r, err := a.newEntryReader(i, cfg.maxBlocks)
	if err != nil {
		return err
	}
	_, err = r.WriteTo(w)
	return err
}

// readFileInitialCap bounds the buffer ReadFile allocates up front.
const readFileInitialCap = 4 * format.BlockSize

// ReadFile implements fs.ReadFileFS.
//
// ReadFile returns the decoded content of the named entry, or an
// *fs.PathError wrapping ErrNotFound when the entry does not exist. Names
// are looked up case-insensitively and, as for any fs.FS, separated by '/' only.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	i, ok := a.idx.LookupPath(name)
	if !ok || fsHidden(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: ErrNotFound}
	}
	r, err := a.newEntryReader(i, 0)
	if err != nil {
		return nil, err
	}
	// The declared size is untrusted until the blocks decode.
	out := make([]byte, 0, min(r.decodedSize(), readFileInitialCap))
	for {
		b, err := r.nextBlock()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
}

// entryReader decodes the blocks of one entry in order.
type entryReader struct {
	a     *Archive
	i     int
	name  string
	hash  format.NameHash
	sizes []uint16
	size  uint64
	limit int
	next  int
	off   int64
	buf   []byte

	// bypass skips the block cache.
	bypass bool
}

func (a *Archive) newEntryReader(i, maxBlocks int) (*entryReader, error) {
	rec := a.idx.Record(i)
	name := a.idx.Name(i)
	if rec.StartOffset > math.MaxInt64 {
		return nil, &CorruptBlockError{Path: name, Block: 0, Err: fmt.Errorf("start offset %d out of range", rec.StartOffset)}
	}
	sizes := a.idx.BlockSizes(i)
	limit := len(sizes)
	if maxBlocks > 0 && maxBlocks < limit {
		limit = maxBlocks
	}
	return &entryReader{
		a:     a,
		i:     i,
		name:  name,
		hash:  a.idx.Hash(i),
		sizes: sizes,
		size:  rec.OriginalSize,
		limit: limit,
		off:   int64(rec.StartOffset),
	}, nil
}

// decodedSize returns the number of bytes the reader produces.
func (r *entryReader) decodedSize() int64 {
	if r.limit == len(r.sizes) {
		return int64(r.size) //nolint:gosec // bounded by the block table
	}
	return int64(r.limit) * format.BlockSize
}

// nextBlock decodes the next block. It returns io.EOF after the last block
// within the limit. The returned slice must not be modified.
func (r *entryReader) nextBlock() ([]byte, error) {
	if r.next >= r.limit {
		return nil, io.EOF
	}
	j := r.next
	blk, err := format.ClassifyBlock(r.sizes[j], j, len(r.sizes), r.size)
	if err != nil {
		return nil, r.corrupt(j, err)
	}
	if r.off > math.MaxInt64-int64(blk.StoredSize) {
		return nil, r.corrupt(j, format.ErrSizeOverflow)
	}
	var b []byte
	if r.bypass {
		b, err = r.a.loadBlock(blk, r.off)
	} else {
		b, err = r.a.readBlock(r.hash, j, blk, r.off)
	}
	if err != nil {
		return nil, r.corrupt(j, err)
	}
	r.off += int64(blk.StoredSize)
	r.next++
	return b, nil
}

func (r *entryReader) corrupt(j int, err error) error {
	return &CorruptBlockError{Path: r.name, Block: j, Err: err}
}

// Read implements io.Reader.
func (r *entryReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.buf) == 0 {
		b, err := r.nextBlock()
		if err != nil {
			return 0, err
		}
		r.buf = b
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// WriteTo implements io.WriterTo. Write failures are reported as corrupt
// blocks, like decode failures.
func (r *entryReader) WriteTo(w io.Writer) (int64, error) {
	var total int64
	if len(r.buf) > 0 {
		n, err := w.Write(r.buf)
		total += int64(n)
		r.buf = nil
		if err != nil {
			return total, r.corrupt(r.next-1, err)
		}
	}
	for {
		b, err := r.nextBlock()
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		n, err := w.Write(b)
		total += int64(n)
		if err != nil {
			return total, r.corrupt(r.next-1, err)
		}
	}
}

// readBlock returns the decoded bytes of block j of the entry with the given
// hash, consulting the block cache when one is configured.
func (a *Archive) readBlock(hash format.NameHash, j int, blk format.Block, off int64) ([]byte, error) {
	if a.cache == nil {
		return a.loadBlock(blk, off)
	}

	key := cache.Key{Source: a.src.SourceID(), Entry: hash, Block: j}
	if b, ok := a.cache.Get(key); ok && len(b) == blk.DecodedSize {
		a.log().Debug("block cache hit", "entry", hash.String(), "block", j)
		return b, nil
	}

	a.log().Debug("block cache miss", "entry", hash.String(), "block", j)
	result, err, _ := a.group.Do(key.String(), func() (any, error) {
		// Double-check cache
		if b, ok := a.cache.Get(key); ok && len(b) == blk.DecodedSize {
			return b, nil
		}
		b, err := a.loadBlock(blk, off)
		if err != nil {
			return nil, err
		}
		_ = a.cache.Put(key, b) //nolint:errcheck // caching is opportunistic
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil //nolint:errcheck,forcetypeassert // type assertion always succeeds when err is nil
}

// loadBlock reads and decodes one stored block at off.
func (a *Archive) loadBlock(blk format.Block, off int64) ([]byte, error) {
	stored := make([]byte, blk.StoredSize)
	if err := readFullAt(a.src, stored, off); err != nil {
		return nil, fmt.Errorf("read %d bytes at %d: %w", blk.StoredSize, off, err)
	}
	switch blk.Kind {
	case format.RawFull, format.RawRemainder:
		return stored[:blk.DecodedSize], nil
	case format.Compressed:
		out := make([]byte, blk.DecodedSize)
		if err := a.decoder.Decompress(out, stored); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown block kind %d", blk.Kind)
	}
}
