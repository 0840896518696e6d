package format

import (
	"crypto/md5" //nolint:gosec // the container format is defined in terms of MD5
	"encoding/hex"
	"strings"
)

// NameHash is the MD5 digest of a normalized entry path.
type NameHash [HashSize]byte

// String returns the upper-case hex form used by tooling output.
func (h NameHash) String() string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// NormalizePath lower-cases p and converts backslashes to forward slashes.
func NormalizePath(p string) string {
	return strings.ReplaceAll(strings.ToLower(p), `\`, "/")
}

// HashPath returns the lookup hash for p after normalization.
func HashPath(p string) NameHash {
	return md5.Sum([]byte(NormalizePath(p))) //nolint:gosec // format-defined digest
}
