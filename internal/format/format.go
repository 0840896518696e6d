// Package format defines the on-disk layout of VBF archives.
//
// Everything is little-endian. An archive is a header region followed by the
// data segment and a 16-byte MD5 trailer computed over the header region:
//
//	magic            u32
//	header_length    u32   start of the data segment
//	file_count       u64
//	name_hashes      [16]byte × file_count
//	records          Record × file_count
//	name_table       u32 size (self-inclusive) + NUL-separated UTF-8 names
//	block_sizes      u16 × total_blocks
//	data segment
//	MD5([0, header_length))
package format

// Magic is the archive signature stored in the first four bytes.
const Magic uint32 = 0x4B595253

// ReservedSentinel is written into every record's reserved field.
// Readers ignore it.
const ReservedSentinel uint32 = 0x003D13F6

const (
	// BlockSize is the size of a logical block of uncompressed content.
	BlockSize = 64 << 10

	// PrefixSize covers magic, header_length and file_count.
	PrefixSize = 16

	// HashSize is the size of a name hash.
	HashSize = 16

	// RecordSize is the encoded size of a Record.
	RecordSize = 32

	// NameTableSizeField is the size of the name table length prefix.
	NameTableSizeField = 4

	// BlockSizeFieldSize is the encoded size of one block_sizes element.
	BlockSizeFieldSize = 2

	// ChecksumSize is the size of the trailing header checksum.
	ChecksumSize = 16

	// CompressedPrefixSize is the opaque field preceding every compressed
	// block's DEFLATE payload. It is always written as zero.
	CompressedPrefixSize = 2
)

// Record is the per-entry metadata stored in the header.
type Record struct {
	// BlockListStart indexes the entry's first element in block_sizes.
	BlockListStart uint32

	// Reserved is ReservedSentinel in archives we write.
	Reserved uint32

	// OriginalSize is the uncompressed size of the entry.
	OriginalSize uint64

	// StartOffset is the absolute file offset of the entry's first block.
	StartOffset uint64

	// NameTableOffset is the offset of the entry's name within the name table
	// payload (after the size field).
	NameTableOffset uint64
}

// BlockCount returns the number of logical blocks needed for size bytes.
func BlockCount(size uint64) uint64 {
	n := size / BlockSize
	if size%BlockSize != 0 {
		n++
	}
	return n
}

// Remainder returns the decoded size of the final block of an entry of the
// given size. Exact multiples report a full block.
func Remainder(size uint64) int {
	r := int(size % BlockSize)
	if r == 0 {
		return BlockSize
	}
	return r
}
