package index

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/meigma/vbf/internal/format"
)

// Layout holds the byte offsets of each header section.
type Layout struct {
	FileCount      uint64
	NameTableSize  uint64 // includes the 4-byte size field
	BlockCount     uint64
	HashesOffset   uint64
	RecordsOffset  uint64
	NameTableStart uint64
	BlockTableAt   uint64
	HeaderLength   uint64
}

// NewLayout computes the header layout for the given counts. nameBytes is the
// size of the NUL-terminated names without the size field.
func NewLayout(fileCount, nameBytes, blockCount uint64) (Layout, error) {
	l := Layout{
		FileCount:     fileCount,
		NameTableSize: nameBytes + format.NameTableSizeField,
		BlockCount:    blockCount,
		HashesOffset:  format.PrefixSize,
	}
	if l.NameTableSize > math.MaxUint32 {
		return Layout{}, fmt.Errorf("%w: name table of %d bytes", format.ErrSizeOverflow, l.NameTableSize)
	}
	if blockCount > math.MaxUint32 {
		return Layout{}, fmt.Errorf("%w: %d blocks", format.ErrSizeOverflow, blockCount)
	}
	l.RecordsOffset = l.HashesOffset + fileCount*format.HashSize
	l.NameTableStart = l.RecordsOffset + fileCount*format.RecordSize
	l.BlockTableAt = l.NameTableStart + l.NameTableSize
	l.HeaderLength = l.BlockTableAt + blockCount*format.BlockSizeFieldSize
	if l.HeaderLength > math.MaxUint32 {
		return Layout{}, fmt.Errorf("%w: header of %d bytes", format.ErrSizeOverflow, l.HeaderLength)
	}
	return l, nil
}

// Header is the decoded content of a header region.
type Header struct {
	Hashes     []format.NameHash
	Records    []format.Record
	NameTable  []byte // NUL-terminated names, without the size field
	BlockSizes []uint16
}

// Encode serializes h using layout l. headerLength is written verbatim so the
// builder can emit its zero placeholder first.
func Encode(l Layout, h *Header, headerLength uint32) ([]byte, error) {
	if uint64(len(h.Hashes)) != l.FileCount || uint64(len(h.Records)) != l.FileCount {
		return nil, fmt.Errorf("encode header: %d hashes and %d records for %d files", len(h.Hashes), len(h.Records), l.FileCount)
	}
	if uint64(len(h.NameTable))+format.NameTableSizeField != l.NameTableSize {
		return nil, fmt.Errorf("encode header: name table is %d bytes, layout expects %d", len(h.NameTable), l.NameTableSize-format.NameTableSizeField)
	}
	if uint64(len(h.BlockSizes)) != l.BlockCount {
		return nil, fmt.Errorf("encode header: %d block sizes, layout expects %d", len(h.BlockSizes), l.BlockCount)
	}

	buf := make([]byte, l.HeaderLength)
	binary.LittleEndian.PutUint32(buf[0:4], format.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], headerLength)
	binary.LittleEndian.PutUint64(buf[8:16], l.FileCount)

	off := l.HashesOffset
	for i := range h.Hashes {
		copy(buf[off:off+format.HashSize], h.Hashes[i][:])
		off += format.HashSize
	}

	off = l.RecordsOffset
	for i := range h.Records {
		putRecord(buf[off:off+format.RecordSize], &h.Records[i])
		off += format.RecordSize
	}

	binary.LittleEndian.PutUint32(buf[l.NameTableStart:], uint32(l.NameTableSize)) //nolint:gosec // checked in NewLayout
	copy(buf[l.NameTableStart+format.NameTableSizeField:], h.NameTable)

	off = l.BlockTableAt
	for _, s := range h.BlockSizes {
		binary.LittleEndian.PutUint16(buf[off:off+2], s)
		off += format.BlockSizeFieldSize
	}
	return buf, nil
}

func putRecord(b []byte, r *format.Record) {
	binary.LittleEndian.PutUint32(b[0:4], r.BlockListStart)
	binary.LittleEndian.PutUint32(b[4:8], r.Reserved)
	binary.LittleEndian.PutUint64(b[8:16], r.OriginalSize)
	binary.LittleEndian.PutUint64(b[16:24], r.StartOffset)
	binary.LittleEndian.PutUint64(b[24:32], r.NameTableOffset)
}

func readRecord(b []byte) format.Record {
	return format.Record{
		BlockListStart:  binary.LittleEndian.Uint32(b[0:4]),
		Reserved:        binary.LittleEndian.Uint32(b[4:8]),
		OriginalSize:    binary.LittleEndian.Uint64(b[8:16]),
		StartOffset:     binary.LittleEndian.Uint64(b[16:24]),
		NameTableOffset: binary.LittleEndian.Uint64(b[24:32]),
	}
}
