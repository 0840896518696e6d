package vbf

import (
	"log/slog"

	"github.com/meigma/vbf/cache"
)

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets a logger for the archive.
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithBlockCache enables caching of decoded blocks.
//
// Blocks are keyed by the source ID, the entry's name hash and the block
// index, so one cache can be shared by many archives. Concurrent misses for
// the same block are collapsed into a single read.
func WithBlockCache(c cache.BlockCache) Option {
	return func(a *Archive) {
		a.cache = c
	}
}

// ExtractOption configures a single Extract call.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	maxBlocks int
}

// ExtractWithMaxBlocks limits extraction to the leading n blocks of the
// entry. Values of zero or less mean no limit.
func ExtractWithMaxBlocks(n int) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.maxBlocks = n
	}
}
