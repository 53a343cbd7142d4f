package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idLength = 21

// NewID returns a fresh nanoid used for generated node ids, job ids and
// snapshot keys.
func NewID() (string, error) {
	return gonanoid.New(idLength)
}

// IsID reports whether s looks like an id produced by NewID.
func IsID(s string) bool {
	if len(s) != idLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			continue
		}
		return false
	}
	return true
}
