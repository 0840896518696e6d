package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirPrefix(t *testing.T) {
	assert.Empty(t, DirPrefix("."))
	assert.Empty(t, DirPrefix(""))
	assert.Equal(t, "a/b/", DirPrefix("a/b"))
	assert.Equal(t, "a/", DirPrefix("a/"))
}

func TestChild(t *testing.T) {
	tests := []struct {
		name, prefix string
		child        string
		direct       bool
	}{
		{"a/b.txt", "a/", "b.txt", true},
		{"a/b/c.txt", "a/", "b", false},
		{"top.txt", "", "top.txt", true},
		{"other/x", "a/", "", false},
		{"a/", "a/", "", false},
	}
	for _, tt := range tests {
		child, direct := Child(tt.name, tt.prefix)
		assert.Equal(t, tt.child, child, tt.name)
		assert.Equal(t, tt.direct, direct, tt.name)
	}
}
