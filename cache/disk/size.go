package disk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// SizeBytes returns the total size of cached blocks.
func (c *Cache) SizeBytes() (int64, error) {
	entries, err := c.scan()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += e.size
	}
	return total, nil
}

// Prune removes the oldest blocks until the cache holds at most targetBytes.
// A negative target uses the WithMaxBytes limit; with no limit configured it
// is a no-op. It returns the number of bytes freed.
func (c *Cache) Prune(targetBytes int64) (int64, error) {
	if targetBytes < 0 {
		if c.maxBytes <= 0 {
			return 0, nil
		}
		targetBytes = c.maxBytes
	}

	entries, err := c.scan()
	if err != nil {
		return 0, err
	}
	var remaining int64
	for _, e := range entries {
		remaining += e.size
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].modTime.Equal(entries[j].modTime) {
			return entries[i].path < entries[j].path
		}
		return entries[i].modTime.Before(entries[j].modTime)
	})

	var freed int64
	for _, e := range entries {
		if remaining <= targetBytes {
			break
		}
		if err := os.Remove(e.path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return freed, err
		}
		remaining -= e.size
		freed += e.size
	}
	return freed, nil
}

type cacheEntry struct {
	path    string
	size    int64
	modTime time.Time
}

func (c *Cache) scan() ([]cacheEntry, error) {
	var entries []cacheEntry
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, cacheEntry{path: path, size: info.Size(), modTime: info.ModTime()})
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}
