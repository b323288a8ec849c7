// Package utf8util provides the UTF-8 length and bounded-copy helpers
// spec.md §6 lists as platform services: validating that string and
// JSON sample payloads are valid UTF-8, and copying into
// caller-supplied buffers with overflow signalled rather than panicked.
package utf8util

import (
	"unicode/utf8"

	"github.com/Nico26-sw/legato-Service-DataHub/pkg/result"
)

// Valid reports whether b is well-formed UTF-8.
func Valid(b []byte) bool {
	return utf8.Valid(b)
}

// RuneCount returns the number of runes in b. Callers that only need a
// bound should prefer len(b) (byte length); this exists for name-limit
// checks expressed in characters rather than bytes.
func RuneCount(b []byte) int {
	return utf8.RuneCount(b)
}

// CopyInto copies src into dst, returning the number of bytes written.
// It returns result.Overflow without writing a partial rune sequence
// split across the boundary when dst is too small.
func CopyInto(dst []byte, src []byte) (int, error) {
	if len(dst) < len(src) {
		return 0, result.New(result.Overflow, "utf8util", "CopyInto", "destination buffer too small")
	}
	return copy(dst, src), nil
}
