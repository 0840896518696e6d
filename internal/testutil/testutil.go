// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/meigma/vbf/cache"
)

// MockByteSource implements a simple in-memory byte source for tests.
type MockByteSource struct {
	data  []byte
	id    string
	reads atomic.Int64
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{data: data, id: "mock"}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	m.reads.Add(1)
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if off+int64(n) >= int64(len(m.data)) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.data))
}

// SourceID returns a fixed identifier.
func (m *MockByteSource) SourceID() string {
	return m.id
}

// Reads returns the number of ReadAt calls so far.
func (m *MockByteSource) Reads() int64 {
	return m.reads.Load()
}

// Bytes returns the backing slice for tests that need to mutate data.
func (m *MockByteSource) Bytes() []byte {
	return m.data
}

// MockCache implements a basic concurrency-safe block cache for tests.
type MockCache struct {
	mu   sync.RWMutex
	data map[cache.Key][]byte
	hits atomic.Int64
	puts atomic.Int64
}

// NewMockCache constructs an empty in-memory cache.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[cache.Key][]byte)}
}

// Get retrieves a block by key.
func (c *MockCache) Get(key cache.Key) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.data[key]
	if ok {
		c.hits.Add(1)
	}
	return data, ok
}

// Put stores a block by key.
func (c *MockCache) Put(key cache.Key, block []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = block
	c.puts.Add(1)
	return nil
}

// Hits returns the number of successful Gets.
func (c *MockCache) Hits() int64 {
	return c.hits.Load()
}

// Puts returns the number of Puts.
func (c *MockCache) Puts() int64 {
	return c.puts.Load()
}

// Compressible returns n bytes of repetitive text.
func Compressible(n int) []byte {
	const text = "the quick brown fox jumps over the lazy dog\n"
	out := make([]byte, n)
	for i := range out {
		out[i] = text[i%len(text)]
	}
	return out
}

// Random returns n deterministic pseudo-random bytes for seed. The output does
// not compress.
func Random(seed uint64, n int) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // test data
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(r.Uint32())
	}
	return out
}

// WriteTree creates files under dir. Keys are slash-separated relative paths.
func WriteTree(tb testing.TB, dir string, files map[string][]byte) {
	tb.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			tb.Fatalf("MkdirAll(%s): %v", rel, err)
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			tb.Fatalf("WriteFile(%s): %v", rel, err)
		}
	}
}
