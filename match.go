package vbf

import (
	"strings"

	"github.com/gobwas/glob"
)

// Filter matches entry names against a wildcard pattern.
//
// '*' matches any run of characters, including '/', and '?' matches exactly
// one character. Every other character is literal. The pattern must match
// the whole name. An empty pattern matches everything.
type Filter struct {
	g glob.Glob
}

// NewFilter compiles pattern.
func NewFilter(pattern string) *Filter {
	if pattern == "" {
		pattern = "*"
	}

	var b strings.Builder
	lit := 0
	for i, r := range pattern {
		if r != '*' && r != '?' {
			continue
		}
		b.WriteString(glob.QuoteMeta(pattern[lit:i]))
		b.WriteRune(r)
		lit = i + 1
	}
	b.WriteString(glob.QuoteMeta(pattern[lit:]))

	// No separators: '*' crosses '/'.
	return &Filter{g: glob.MustCompile(b.String())}
}

// Match reports whether name matches the filter.
func (f *Filter) Match(name string) bool {
	return f.g.Match(name)
}

// Match reports whether name matches the wildcard pattern. See Filter.
func Match(pattern, name string) bool {
	return NewFilter(pattern).Match(name)
}
