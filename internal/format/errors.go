package format

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the reader and builder.
var (
	// ErrInvalidHeader is returned when the magic number is wrong or the
	// header is structurally unreadable.
	ErrInvalidHeader = errors.New("vbf: invalid header")

	// ErrCountMismatch is returned when the name table does not hold exactly
	// file_count names.
	ErrCountMismatch = errors.New("vbf: file count mismatch")

	// ErrChecksumMismatch is returned when the trailer does not match the MD5
	// of the header region.
	ErrChecksumMismatch = errors.New("vbf: checksum mismatch")

	// ErrCorruptBlock is returned when a block cannot be read or decoded.
	ErrCorruptBlock = errors.New("vbf: corrupt block")

	// ErrSizeOverflow is returned when a value does not fit its on-disk field.
	ErrSizeOverflow = errors.New("vbf: size overflow")
)

// CorruptBlockError reports the entry and block that failed to decode.
type CorruptBlockError struct {
	Path  string
	Block int
	Err   error
}

func (e *CorruptBlockError) Error() string {
	return fmt.Sprintf("vbf: corrupt block %d of %s: %v", e.Block, e.Path, e.Err)
}

func (e *CorruptBlockError) Unwrap() error {
	return e.Err
}

// Is reports ErrCorruptBlock as a match.
func (e *CorruptBlockError) Is(target error) bool {
	return target == ErrCorruptBlock
}
