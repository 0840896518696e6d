// Package pathutil provides helpers for slash-separated archive names.
package pathutil

import "strings"

// DirPrefix returns the prefix shared by every name inside directory dir.
// The root directory "." has the empty prefix.
func DirPrefix(dir string) string {
	if dir == "." || dir == "" {
		return ""
	}
	return strings.TrimSuffix(dir, "/") + "/"
}

// Child reports the first component of name below prefix and whether that
// component is the whole remainder. It returns "" if name is not under prefix
// or is the prefix itself.
func Child(name, prefix string) (child string, direct bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok || rest == "" {
		return "", false
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i], false
	}
	return rest, true
}
