package vbf

import (
	"log/slog"
)

// buildConfig holds configuration for archive creation.
type buildConfig struct {
	sorted      bool
	level       int
	levelSet    bool
	concurrency int
	maxFiles    int
	progress    ProgressFunc
	logger      *slog.Logger
	exclude     []string
}

// BuildOption configures archive creation.
type BuildOption func(*buildConfig)

// BuildWithSortedPaths controls entry order. By default entries are stored
// in the order the filesystem enumerates them, which is not stable across
// platforms. Sorted builds of the same input are byte-for-byte reproducible.
func BuildWithSortedPaths(sorted bool) BuildOption {
	return func(cfg *buildConfig) {
		cfg.sorted = sorted
	}
}

// BuildWithCompressionLevel sets the DEFLATE level, from -2 (Huffman only)
// through 9 (best compression). Level 0 stores every block raw.
func BuildWithCompressionLevel(level int) BuildOption {
	return func(cfg *buildConfig) {
		cfg.level = level
		cfg.levelSet = true
	}
}

// BuildWithConcurrency compresses up to n blocks of a file in parallel.
// Output is identical to a sequential build. Values below 2 disable
// parallel compression.
func BuildWithConcurrency(n int) BuildOption {
	return func(cfg *buildConfig) {
		cfg.concurrency = n
	}
}

// BuildWithProgress sets a callback for progress updates.
func BuildWithProgress(fn ProgressFunc) BuildOption {
	return func(cfg *buildConfig) {
		cfg.progress = fn
	}
}

// BuildWithLogger sets a logger for the build.
// If nil, a discard logger is used (default behavior).
func BuildWithLogger(logger *slog.Logger) BuildOption {
	return func(cfg *buildConfig) {
		cfg.logger = logger
	}
}

// BuildWithMaxFiles refuses trees holding more than n files with
// ErrTooManyFiles. Zero or negative means no limit, the default.
func BuildWithMaxFiles(n int) BuildOption {
	return func(cfg *buildConfig) {
		cfg.maxFiles = n
	}
}
