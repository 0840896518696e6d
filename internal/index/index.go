// Package index implements the in-memory model of a VBF header.
package index

import (
	"bytes"
	"crypto/md5" //nolint:gosec // the container format is defined in terms of MD5
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/meigma/vbf/internal/format"
)

// Index provides access to archive entries.
//
// An Index is built once by Load and is immutable afterwards; it is safe for
// concurrent use.
type Index struct {
	headerLength uint32
	hashes       []format.NameHash
	records      []format.Record
	names        []string
	blockSizes   []uint16
	byHash       map[format.NameHash]int
}

// Load reads and validates the header region of an archive of the given size.
//
// Validation order: magic number, header length bounds, trailing checksum,
// then the structural decode (name table count, block table bounds). Any
// damaged header byte therefore reports format.ErrChecksumMismatch, and
// format.ErrCountMismatch only surfaces for a header whose checksum matches
// but whose name table disagrees with file_count. No index is returned on
// failure.
func Load(src io.ReaderAt, size int64) (*Index, error) {
	if size < format.PrefixSize+format.ChecksumSize {
		return nil, fmt.Errorf("%w: file too short (%d bytes)", format.ErrInvalidHeader, size)
	}

	var prefix [format.PrefixSize]byte
	if err := readAt(src, prefix[:], 0); err != nil {
		return nil, fmt.Errorf("%w: read prefix: %w", format.ErrInvalidHeader, err)
	}
	if magic := binary.LittleEndian.Uint32(prefix[0:4]); magic != format.Magic {
		return nil, fmt.Errorf("%w: bad magic %#08x", format.ErrInvalidHeader, magic)
	}
	headerLength := binary.LittleEndian.Uint32(prefix[4:8])
	if headerLength < format.PrefixSize || int64(headerLength) > size-format.ChecksumSize {
		return nil, fmt.Errorf("%w: header length %d out of range for %d-byte file", format.ErrInvalidHeader, headerLength, size)
	}

	header := make([]byte, headerLength)
	if err := readAt(src, header, 0); err != nil {
		return nil, fmt.Errorf("%w: read header: %w", format.ErrInvalidHeader, err)
	}
	var trailer [format.ChecksumSize]byte
	if err := readAt(src, trailer[:], size-format.ChecksumSize); err != nil {
		return nil, fmt.Errorf("%w: read trailer: %w", format.ErrInvalidHeader, err)
	}
	if sum := md5.Sum(header); !bytes.Equal(sum[:], trailer[:]) { //nolint:gosec // format-defined digest
		return nil, format.ErrChecksumMismatch
	}

	return Decode(header)
}

// Decode parses a checksum-verified header region.
func Decode(header []byte) (*Index, error) {
	if len(header) < format.PrefixSize {
		return nil, fmt.Errorf("%w: header too short", format.ErrInvalidHeader)
	}
	headerLength := uint64(len(header))
	fileCount := binary.LittleEndian.Uint64(header[8:16])

	perFile := uint64(format.HashSize + format.RecordSize)
	fixed := uint64(format.PrefixSize + format.NameTableSizeField)
	if headerLength < fixed || fileCount > (headerLength-fixed)/perFile {
		return nil, fmt.Errorf("%w: %d files do not fit a %d-byte header", format.ErrInvalidHeader, fileCount, headerLength)
	}
	n := int(fileCount)

	idx := &Index{
		headerLength: uint32(headerLength), //nolint:gosec // header length is read from a u32 field
		hashes:       make([]format.NameHash, n),
		records:      make([]format.Record, n),
		byHash:       make(map[format.NameHash]int, n),
	}

	off := uint64(format.PrefixSize)
	for i := range n {
		copy(idx.hashes[i][:], header[off:off+format.HashSize])
		idx.byHash[idx.hashes[i]] = i
		off += format.HashSize
	}
	for i := range n {
		idx.records[i] = readRecord(header[off : off+format.RecordSize])
		off += format.RecordSize
	}

	tableSize := uint64(binary.LittleEndian.Uint32(header[off : off+format.NameTableSizeField]))
	if tableSize < format.NameTableSizeField || off+tableSize > headerLength {
		return nil, fmt.Errorf("%w: name table of %d bytes exceeds header", format.ErrInvalidHeader, tableSize)
	}
	idx.names = splitNames(header[off+format.NameTableSizeField : off+tableSize])
	if uint64(len(idx.names)) != fileCount {
		return nil, fmt.Errorf("%w: name table holds %d names, header declares %d", format.ErrCountMismatch, len(idx.names), fileCount)
	}
	off += tableSize

	var blockCount uint64
	maxBlocks := (headerLength - off) / format.BlockSizeFieldSize
	for i := range idx.records {
		blockCount += format.BlockCount(idx.records[i].OriginalSize)
		if blockCount > maxBlocks {
			return nil, fmt.Errorf("%w: block size table exceeds header at entry %d", format.ErrInvalidHeader, i)
		}
	}
	idx.blockSizes = make([]uint16, blockCount)
	for i := range idx.blockSizes {
		idx.blockSizes[i] = binary.LittleEndian.Uint16(header[off : off+2])
		off += format.BlockSizeFieldSize
	}

	for i := range idx.records {
		r := &idx.records[i]
		if uint64(r.BlockListStart)+format.BlockCount(r.OriginalSize) > blockCount {
			return nil, fmt.Errorf("%w: entry %d block list out of range", format.ErrInvalidHeader, i)
		}
	}
	return idx, nil
}

// readAt fills p from off. A full read that also reports io.EOF succeeds.
func readAt(src io.ReaderAt, p []byte, off int64) error {
	n, err := src.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// splitNames splits a NUL-separated name table, ignoring leading and trailing
// NULs. An empty table yields no names.
func splitNames(table []byte) []string {
	s := strings.Trim(string(table), "\x00")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\x00")
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.records)
}

// HeaderLength returns the size of the header region.
func (idx *Index) HeaderLength() uint32 {
	return idx.headerLength
}

// BlockCount returns the total number of blocks across all entries.
func (idx *Index) BlockCount() int {
	return len(idx.blockSizes)
}

// Names returns the entry names in archive order. The slice is shared and
// must not be modified.
func (idx *Index) Names() []string {
	return idx.names
}

// Lookup returns the entry index for a name hash.
func (idx *Index) Lookup(h format.NameHash) (int, bool) {
	i, ok := idx.byHash[h]
	return i, ok
}

// LookupPath normalizes and hashes p, then looks it up.
func (idx *Index) LookupPath(p string) (int, bool) {
	return idx.Lookup(format.HashPath(p))
}

// Record returns the record of entry i.
func (idx *Index) Record(i int) format.Record {
	return idx.records[i]
}

// Hash returns the name hash of entry i.
func (idx *Index) Hash(i int) format.NameHash {
	return idx.hashes[i]
}

// Name returns the name of entry i as stored in the name table.
func (idx *Index) Name(i int) string {
	return idx.names[i]
}

// BlockSizes returns the block_sizes elements owned by entry i.
func (idx *Index) BlockSizes(i int) []uint16 {
	r := idx.records[i]
	start := uint64(r.BlockListStart)
	return idx.blockSizes[start : start+format.BlockCount(r.OriginalSize)]
}

// Blocks classifies every block of entry i.
func (idx *Index) Blocks(i int) ([]format.Block, error) {
	sizes := idx.BlockSizes(i)
	size := idx.records[i].OriginalSize
	blocks := make([]format.Block, len(sizes))
	for j, s := range sizes {
		b, err := format.ClassifyBlock(s, j, len(sizes), size)
		if err != nil {
			return nil, err
		}
		blocks[j] = b
	}
	return blocks, nil
}
