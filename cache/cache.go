// Package cache provides caches for decoded archive blocks.
//
// Decoding a compressed block costs an inflate pass and, for remote sources,
// a range request. Callers that repeatedly preview the same entries (for
// example the leading block of every image in a directory) can plug a
// BlockCache into the reader to serve repeats from memory or disk.
package cache

import (
	"encoding/hex"
	"strconv"
)

// Key identifies one decoded block of one entry in one archive.
type Key struct {
	// Source is the stable identifier of the archive's byte source.
	Source string

	// Entry is the MD5 name hash of the entry.
	Entry [16]byte

	// Block is the block index within the entry.
	Block int
}

// String returns a printable form of the key, unique per key.
func (k Key) String() string {
	return k.Source + "|" + hex.EncodeToString(k.Entry[:]) + "|" + strconv.Itoa(k.Block)
}

// BlockCache stores decoded blocks.
//
// Implementations must be safe for concurrent use. Returned slices must not be
// modified by callers.
type BlockCache interface {
	// Get returns the decoded block for key.
	Get(key Key) ([]byte, bool)

	// Put stores a decoded block. Implementations may drop entries at any
	// time; errors are informational.
	Put(key Key, block []byte) error
}
