package vbf

import (
	"errors"
	"io/fs"

	"github.com/meigma/vbf/internal/format"
)

// Sentinel errors re-exported from internal/format.
var (
	// ErrInvalidHeader is returned when the magic number is wrong or the
	// header is structurally unreadable.
	ErrInvalidHeader = format.ErrInvalidHeader

	// ErrCountMismatch is returned when the name table does not hold exactly
	// file_count names.
	ErrCountMismatch = format.ErrCountMismatch

	// ErrChecksumMismatch is returned when the trailer does not match the MD5
	// of the header region.
	ErrChecksumMismatch = format.ErrChecksumMismatch

	// ErrCorruptBlock is returned when a block cannot be read, decoded or
	// emitted. The concrete error is a *CorruptBlockError.
	ErrCorruptBlock = format.ErrCorruptBlock

	// ErrSizeOverflow is returned when a value does not fit its on-disk field.
	ErrSizeOverflow = format.ErrSizeOverflow
)

// Sentinel errors specific to the vbf package.
var (
	// ErrNotFound is returned by ReadFile and the fs.FS methods for paths that
	// are not in the archive. It is fs.ErrNotExist.
	ErrNotFound = fs.ErrNotExist

	// ErrFileChanged is returned when an input file changes size while an
	// archive is being built.
	ErrFileChanged = errors.New("vbf: file changed during build")

	// ErrTooManyFiles is returned when the file count exceeds the configured limit.
	ErrTooManyFiles = errors.New("vbf: too many files")
)

// CorruptBlockError reports the entry and block that failed to decode.
type CorruptBlockError = format.CorruptBlockError
