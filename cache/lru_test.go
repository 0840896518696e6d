package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	t.Parallel()

	c, err := NewLRU(2)
	require.NoError(t, err)

	k1 := Key{Source: "a", Block: 0}
	k2 := Key{Source: "a", Block: 1}
	k3 := Key{Source: "b", Block: 0}

	require.NoError(t, c.Put(k1, []byte("one")))
	require.NoError(t, c.Put(k2, []byte("two")))

	got, ok := c.Get(k1)
	require.True(t, ok)
	assert.Equal(t, []byte("one"), got)

	// k2 is now least recently used.
	require.NoError(t, c.Put(k3, []byte("three")))
	_, ok = c.Get(k2)
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestNewLRU_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewLRU(0)
	require.Error(t, err)
}

func TestKeyString(t *testing.T) {
	t.Parallel()

	k := Key{Source: "file:/tmp/x.vbf", Entry: [16]byte{0xAB}, Block: 12}
	assert.Equal(t, "file:/tmp/x.vbf|ab000000000000000000000000000000|12", k.String())
	assert.NotEqual(t, k.String(), Key{Source: k.Source, Entry: k.Entry, Block: 1}.String())
}
