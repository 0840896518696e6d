package cache

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is an in-memory BlockCache bounded by block count.
type LRU struct {
	blocks *lru.Cache[Key, []byte]
}

// NewLRU returns an LRU holding at most maxBlocks decoded blocks.
func NewLRU(maxBlocks int) (*LRU, error) {
	if maxBlocks <= 0 {
		return nil, errors.New("cache: max blocks must be positive")
	}
	c, err := lru.New[Key, []byte](maxBlocks)
	if err != nil {
		return nil, err
	}
	return &LRU{blocks: c}, nil
}

// Get implements BlockCache.
func (c *LRU) Get(key Key) ([]byte, bool) {
	return c.blocks.Get(key)
}

// Put implements BlockCache. The block is retained as given.
func (c *LRU) Put(key Key, block []byte) error {
	c.blocks.Add(key, block)
	return nil
}

// Len returns the number of cached blocks.
func (c *LRU) Len() int {
	return c.blocks.Len()
}

// Purge drops every cached block.
func (c *LRU) Purge() {
	c.blocks.Purge()
}
