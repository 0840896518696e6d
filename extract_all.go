package vbf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/vbf/internal/format"
)

// ExtractStats summarizes an ExtractAll call.
type ExtractStats struct {
	// Files is the number of entries written.
	Files int

	// Skipped is the number of entries left alone because the destination
	// already existed.
	Skipped int

	// Bytes is the total decoded size of the written entries.
	Bytes uint64
}

// ExtractAllOption configures ExtractAll.
type ExtractAllOption func(*extractAllConfig)

type extractAllConfig struct {
	workers   int // 0 = auto, <0 = serial, >0 = fixed count
	filter    string
	overwrite bool
	progress  ProgressFunc
}

// ExtractAllWithWorkers sets the number of entries extracted in parallel.
// Zero uses GOMAXPROCS; a negative value extracts serially.
func ExtractAllWithWorkers(n int) ExtractAllOption {
	return func(cfg *extractAllConfig) {
		cfg.workers = n
	}
}

// ExtractAllWithFilter extracts only entries whose stored name matches
// pattern (see Match).
func ExtractAllWithFilter(pattern string) ExtractAllOption {
	return func(cfg *extractAllConfig) {
		cfg.filter = pattern
	}
}

// ExtractAllWithOverwrite replaces existing files. By default existing files
// are skipped.
func ExtractAllWithOverwrite(overwrite bool) ExtractAllOption {
	return func(cfg *extractAllConfig) {
		cfg.overwrite = overwrite
	}
}

// ExtractAllWithProgress sets a callback invoked after each extracted entry.
func ExtractAllWithProgress(fn ProgressFunc) ExtractAllOption {
	return func(cfg *extractAllConfig) {
		cfg.progress = fn
	}
}

// ExtractAll writes entries under destDir, creating it and any parent
// directories as needed.
//
// Every selected name is checked before anything is written: names that are
// absolute or would escape destDir fail the call with fs.ErrInvalid. Writes
// go through an os.Root, so symlinks inside destDir cannot redirect them
// either. Each file is written to a temporary name and renamed into place.
// When an archive stores the same name twice (compared case-insensitively),
// the later entry wins, matching lookup.
func (a *Archive) ExtractAll(ctx context.Context, destDir string, opts ...ExtractAllOption) (*ExtractStats, error) {
	cfg := extractAllConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	entries, err := a.selectEntries(cfg.filter)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	var totalBytes uint64
	for _, e := range entries {
		totalBytes += a.idx.Record(e.index).OriginalSize
	}
	a.log().Info("extracting archive", "dest", destDir, "files", len(entries), "bytes", totalBytes)

	var (
		mu    sync.Mutex
		stats ExtractStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(cfg.workers, len(entries)))
	for _, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			written, err := a.extractTo(root, e, cfg.overwrite)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if written {
				stats.Files++
				stats.Bytes += a.idx.Record(e.index).OriginalSize
			} else {
				stats.Skipped++
			}
			if cfg.progress != nil {
				cfg.progress(ProgressEvent{
					Stage:      StageExtracting,
					Path:       e.name,
					BytesDone:  stats.Bytes,
					BytesTotal: totalBytes,
					FilesDone:  stats.Files + stats.Skipped,
					FilesTotal: len(entries),
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.log().Debug("extraction complete", "files", stats.Files, "skipped", stats.Skipped)
	return &stats, nil
}

// extractEntry is an entry selected for extraction.
type extractEntry struct {
	index int
	name  string // stored name
	rel   string // destination path relative to the root
}

// selectEntries returns the entries matching filter, one per distinct name,
// after validating every destination path.
func (a *Archive) selectEntries(filter string) ([]extractEntry, error) {
	names := a.idx.Names()
	f := NewFilter(filter)
	latest := make(map[format.NameHash]int, len(names))
	for i, name := range names {
		if !f.Match(name) {
			continue
		}
		latest[format.HashPath(name)] = i
	}

	entries := make([]extractEntry, 0, len(latest))
	for i, name := range names {
		if j, ok := latest[format.HashPath(name)]; !ok || j != i {
			continue
		}
		rel := filepath.FromSlash(path.Clean(strings.ReplaceAll(name, `\`, "/")))
		if !filepath.IsLocal(rel) {
			return nil, &fs.PathError{Op: "extract", Path: name, Err: fs.ErrInvalid}
		}
		entries = append(entries, extractEntry{index: i, name: name, rel: rel})
	}
	return entries, nil
}

// extractTo writes one entry below root. It reports false when the
// destination exists and overwrite is off.
func (a *Archive) extractTo(root *os.Root, e extractEntry, overwrite bool) (bool, error) {
	info, err := root.Lstat(e.rel)
	switch {
	case err == nil && info.IsDir():
		return false, &fs.PathError{Op: "extract", Path: e.name, Err: errors.New("is a directory")}
	case err == nil && !overwrite:
		return false, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return false, err
	}

	if dir := filepath.Dir(e.rel); dir != "." {
		if err := root.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create directory for %s: %w", e.name, err)
		}
	}

	tmp := filepath.Join(filepath.Dir(e.rel), ".vbf-"+strconv.Itoa(e.index)+".tmp")
	f, err := root.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return false, fmt.Errorf("creating temp file: %w", err)
	}
	success := false
	defer func() {
		if !success {
			f.Close()
			root.Remove(tmp)
		}
	}()

	r, err := a.newEntryReader(e.index, 0)
	if err != nil {
		return false, err
	}
	if _, err := r.WriteTo(f); err != nil {
		return false, err
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("closing temp file: %w", err)
	}
	if err := root.Rename(tmp, e.rel); err != nil {
		return false, fmt.Errorf("renaming to destination: %w", err)
	}
	success = true
	a.log().Debug("extracted", "path", e.name, "size", a.idx.Record(e.index).OriginalSize)
	return true, nil
}

// workerCount determines the number of workers to use for extraction.
func workerCount(workers, entries int) int {
	if workers < 0 || entries < 2 {
		return 1
	}
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return max(1, min(workers, entries))
}
