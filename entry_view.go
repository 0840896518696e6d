package vbf

import (
	"github.com/meigma/vbf/internal/format"
)

// BlockKind identifies how a stored block is encoded.
type BlockKind = format.BlockKind

// Block describes one stored block of an entry.
type Block = format.Block

// NameHash is the MD5 of a normalized entry path.
type NameHash = format.NameHash

// Block kinds.
const (
	BlockRawFull      = format.RawFull
	BlockRawRemainder = format.RawRemainder
	BlockCompressed   = format.Compressed
)

// HashPath returns the lookup key of path: the MD5 of its lower-cased,
// forward-slash form.
func HashPath(path string) NameHash {
	return format.HashPath(path)
}

// EntryView provides a read-only view of an archive entry.
//
// The zero value is not usable; views are obtained from Entry and Entries.
type EntryView struct {
	a *Archive
	i int
}

// Path returns the entry name as stored in the name table.
func (v EntryView) Path() string {
	return v.a.idx.Name(v.i)
}

// Hash returns the entry's name hash.
func (v EntryView) Hash() NameHash {
	return v.a.idx.Hash(v.i)
}

// Size returns the decoded size of the entry in bytes.
func (v EntryView) Size() uint64 {
	return v.a.idx.Record(v.i).OriginalSize
}

// StartOffset returns the absolute offset of the entry's first block.
func (v EntryView) StartOffset() uint64 {
	return v.a.idx.Record(v.i).StartOffset
}

// BlockListStart returns the index of the entry's first block_sizes element.
func (v EntryView) BlockListStart() uint32 {
	return v.a.idx.Record(v.i).BlockListStart
}

// NameTableOffset returns the offset of the entry's name within the name
// table, as recorded by the builder.
func (v EntryView) NameTableOffset() uint64 {
	return v.a.idx.Record(v.i).NameTableOffset
}

// BlockCount returns the number of 64 KiB blocks the entry occupies.
func (v EntryView) BlockCount() int {
	return len(v.a.idx.BlockSizes(v.i))
}

// Blocks classifies every stored block of the entry.
func (v EntryView) Blocks() ([]Block, error) {
	return v.a.idx.Blocks(v.i)
}

// StoredSize returns the number of data segment bytes the entry occupies.
func (v EntryView) StoredSize() (uint64, error) {
	blocks, err := v.Blocks()
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, b := range blocks {
		n += uint64(b.StoredSize) //nolint:gosec // block sizes are at most 65536
	}
	return n, nil
}
