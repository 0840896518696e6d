package disk

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meigma/vbf/cache"
)

func TestCachePutGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	key := cache.Key{Source: "file:test.vbf", Entry: [16]byte{1, 2, 3}, Block: 4}
	content := []byte("decoded block")

	if err := c.Put(key, content); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("Get() content = %q, want %q", got, content)
	}

	sum := sha256.Sum256([]byte(key.String()))
	name := hex.EncodeToString(sum[:])
	path := filepath.Join(dir, name[:defaultShardPrefixLen], name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected cache file at %s: %v", path, err)
	}

	if _, ok := c.Get(cache.Key{Source: "file:test.vbf", Entry: key.Entry, Block: 5}); ok {
		t.Fatal("Get() for other block ok = true, want false")
	}
}

func TestCachePutKeepsExisting(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), WithShardPrefixLen(0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	key := cache.Key{Source: "s", Block: 0}
	if err := c.Put(key, []byte("first")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := c.Put(key, []byte("second")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, _ := c.Get(key)
	if string(got) != "first" {
		t.Fatalf("Get() content = %q, want %q", got, "first")
	}
}

func TestCachePrune(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), WithMaxBytes(10))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	old := cache.Key{Source: "s", Block: 0}
	recent := cache.Key{Source: "s", Block: 1}
	if err := c.Put(old, bytes.Repeat([]byte("o"), 8)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := c.Put(recent, bytes.Repeat([]byte("r"), 8)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(c.path(old), past, past); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	size, err := c.SizeBytes()
	if err != nil || size != 16 {
		t.Fatalf("SizeBytes() = %d, %v; want 16", size, err)
	}

	freed, err := c.Prune(-1)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if freed != 8 {
		t.Fatalf("Prune() freed = %d, want 8", freed)
	}
	if _, ok := c.Get(old); ok {
		t.Fatal("oldest block survived prune")
	}
	if _, ok := c.Get(recent); !ok {
		t.Fatal("recent block was pruned")
	}
}

func TestNewRejectsEmptyDir(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") error = nil, want error")
	}
	if _, err := New(t.TempDir(), WithShardPrefixLen(-1)); err == nil {
		t.Fatal("New() with negative shard length error = nil, want error")
	}
}
