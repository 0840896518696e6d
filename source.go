package vbf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// ByteSource provides random access to archive bytes.
//
// Implementations exist for local files, in-memory buffers and HTTP range
// requests (see the http subpackage). SourceID must return a stable
// identifier for the underlying content; it namespaces block cache keys.
type ByteSource interface {
	io.ReaderAt
	Size() int64
	SourceID() string
}

// fileSource wraps *os.File to implement ByteSource.
// os.File has ReadAt but not Size, so we cache the size at construction.
type fileSource struct {
	file     *os.File
	size     int64
	sourceID string
}

func newFileSource(f *os.File) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	absPath, err := filepath.Abs(f.Name())
	if err != nil {
		absPath = f.Name()
	}
	return &fileSource{
		file:     f,
		size:     info.Size(),
		sourceID: fmt.Sprintf("file:%s:%d:%d", absPath, info.Size(), info.ModTime().UnixNano()),
	}, nil
}

// ReadAt implements io.ReaderAt.
func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

// Size returns the total size of the file.
func (s *fileSource) Size() int64 {
	return s.size
}

// SourceID returns a stable identifier for the file content.
func (s *fileSource) SourceID() string {
	return s.sourceID
}

// bytesSource serves an archive held in memory.
type bytesSource struct {
	*bytes.Reader
	id string
}

// NewBytesSource returns a ByteSource over data. id identifies the content
// for caching. An empty id is replaced by the digest of data, so distinct
// buffers never share block cache entries.
func NewBytesSource(data []byte, id string) ByteSource {
	if id == "" {
		id = "bytes:" + digest.FromBytes(data).String()
	}
	return &bytesSource{Reader: bytes.NewReader(data), id: id}
}

func (s *bytesSource) SourceID() string {
	return s.id
}

// readFullAt reads exactly len(p) bytes at off. A ReaderAt may report io.EOF
// together with a complete read; that is not an error here.
func readFullAt(src io.ReaderAt, p []byte, off int64) error {
	n, err := src.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Interface compliance.
var (
	_ ByteSource = (*fileSource)(nil)
	_ ByteSource = (*bytesSource)(nil)
)
