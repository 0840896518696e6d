package vbf

// ProgressEvent represents a progress update during build, extraction or
// verification.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the entry currently being processed, if applicable.
	Path string

	// BytesDone is the number of bytes completed in the current operation.
	BytesDone uint64

	// BytesTotal is the total bytes for the current operation.
	// Zero indicates the total is unknown.
	BytesTotal uint64

	// FilesDone is the number of files completed.
	FilesDone int

	// FilesTotal is the total number of files.
	// Zero indicates the total is unknown (e.g., during enumeration).
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages.
const (
	// StageEnumerating indicates the builder is walking the input directory.
	StageEnumerating ProgressStage = iota

	// StageCompressing indicates file blocks are being compressed and written.
	StageCompressing

	// StageWritingHeader indicates the builder is patching the header and
	// writing the checksum.
	StageWritingHeader

	// StageExtracting indicates entries are being written to disk.
	StageExtracting

	// StageVerifying indicates entries are being decoded for verification.
	StageVerifying
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageEnumerating:
		return "enumerating"
	case StageCompressing:
		return "compressing"
	case StageWritingHeader:
		return "writing header"
	case StageExtracting:
		return "extracting"
	case StageVerifying:
		return "verifying"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// Callbacks may be invoked from multiple goroutines and must be safe for
// concurrent use.
type ProgressFunc func(ProgressEvent)
