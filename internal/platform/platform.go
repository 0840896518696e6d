// Package platform isolates file handling that must not trust the
// filesystem to stay unchanged between calls.
package platform

import (
	"errors"
	"os"
)

// ErrSymlink is returned when a path that must be a regular file is a
// symbolic link.
var ErrSymlink = errors.New("platform: path is a symlink")

// OpenNoFollow opens name under root for reading. It fails with ErrSymlink
// if name is a symbolic link, including one swapped in between the check and
// the open.
func OpenNoFollow(root *os.Root, name string) (*os.File, error) {
	before, err := root.Lstat(name)
	if err != nil {
		return nil, err
	}
	if before.Mode()&os.ModeSymlink != 0 {
		return nil, ErrSymlink
	}
	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	after, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !os.SameFile(before, after) {
		f.Close()
		return nil, ErrSymlink
	}
	return f, nil
}
