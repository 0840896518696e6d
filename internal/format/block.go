package format

import "fmt"

// BlockKind identifies how a stored block is encoded.
type BlockKind uint8

const (
	// RawFull is a full 65536-byte block stored uncompressed. Its stored size
	// is recorded as 0.
	RawFull BlockKind = iota

	// RawRemainder is the final block of an entry stored uncompressed with
	// its literal length.
	RawRemainder

	// Compressed is a block holding the 2-byte opaque prefix followed by a raw
	// DEFLATE stream.
	Compressed
)

// String returns the human-readable name of the block kind.
func (k BlockKind) String() string {
	switch k {
	case RawFull:
		return "raw"
	case RawRemainder:
		return "raw-tail"
	case Compressed:
		return "deflate"
	default:
		return "unknown"
	}
}

// Block describes one stored block of an entry.
type Block struct {
	Kind BlockKind

	// StoredSize is the number of bytes the block occupies in the data
	// segment, including the compressed prefix.
	StoredSize int

	// DecodedSize is the number of bytes the block expands to.
	DecodedSize int
}

// ClassifyBlock interprets a block_sizes element for block i of an entry with
// the given block count and original size.
func ClassifyBlock(stored uint16, i, count int, size uint64) (Block, error) {
	last := i == count-1
	decoded := BlockSize
	if last {
		decoded = Remainder(size)
	}

	switch {
	case stored == 0:
		// A short final block flagged as full still occupies BlockSize bytes;
		// only its leading decoded bytes belong to the entry.
		return Block{Kind: RawFull, StoredSize: BlockSize, DecodedSize: decoded}, nil
	case last && int(stored) == decoded:
		return Block{Kind: RawRemainder, StoredSize: decoded, DecodedSize: decoded}, nil
	case stored < CompressedPrefixSize:
		return Block{}, fmt.Errorf("compressed block %d too short: %d bytes", i, stored)
	default:
		return Block{Kind: Compressed, StoredSize: int(stored), DecodedSize: decoded}, nil
	}
}

// EncodeStoredSize returns the block_sizes element for a block of the given
// kind and stored length.
func EncodeStoredSize(kind BlockKind, n int) (uint16, error) {
	switch kind {
	case RawFull:
		return 0, nil
	case RawRemainder:
		if n == BlockSize {
			return 0, nil
		}
		if n <= 0 || n > BlockSize {
			return 0, fmt.Errorf("raw tail of %d bytes", n)
		}
		return uint16(n), nil //nolint:gosec // bounded above
	case Compressed:
		if n <= CompressedPrefixSize || n >= BlockSize {
			return 0, fmt.Errorf("compressed block of %d bytes", n)
		}
		return uint16(n), nil //nolint:gosec // bounded above
	default:
		return 0, fmt.Errorf("unknown block kind %d", kind)
	}
}
