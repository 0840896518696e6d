// Package walk enumerates the regular files of an input directory.
package walk

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"

	"github.com/meigma/vbf/internal/format"
)

// File is a regular file found under the input root.
type File struct {
	// Path is the operating-system path of the file.
	Path string

	// Rel is the slash-separated path relative to the root, as found on disk.
	Rel string

	// Name is the canonical archive name: Rel lower-cased with forward slashes.
	Name string

	// Size is the file size at enumeration time.
	Size int64
}

// Options controls enumeration.
type Options struct {
	// Sorted visits directory entries in lexical order. When false, entries
	// are visited in the order the filesystem returns them.
	Sorted bool

	// Skipped is called for every entry that is not a regular file.
	Skipped func(path string)
}

// Files returns every regular file under root, recursively. Symlinks and
// special files are skipped.
func Files(root string, opts Options) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	var files []File
	err = godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: !opts.Sorted,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			if !de.IsRegular() {
				if opts.Skipped != nil {
					opts.Skipped(osPathname)
				}
				return nil
			}

			linfo, err := os.Lstat(osPathname)
			if err != nil {
				return err
			}
			if !linfo.Mode().IsRegular() {
				if opts.Skipped != nil {
					opts.Skipped(osPathname)
				}
				return nil
			}

			rel, err := filepath.Rel(root, osPathname)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			files = append(files, File{
				Path: osPathname,
				Rel:  rel,
				Name: format.NormalizePath(rel),
				Size: linfo.Size(),
			})
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
