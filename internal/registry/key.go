package registry

import "strings"

// The byte that terminates every request frame. Keys never contain it.
const Delimiter byte = 0

// A validated key: non-empty and free of [Delimiter].
type Key string

// Validates s as a [Key].
//
// Returns an [*InvalidKeyError] naming the first violation.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return "", &InvalidKeyError{Key: s, NullAt: -1}
	}
	if i := strings.IndexByte(s, Delimiter); i >= 0 {
		return "", &InvalidKeyError{Key: s, NullAt: i}
	}
	return Key(s), nil
}

func (k Key) String() string {
	return string(k)
}
