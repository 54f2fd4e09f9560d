// Package idgen generates task identifiers.
package idgen

import (
	"fmt"

	gonanoid "github.com/jaevor/go-nanoid"
)

// Length is the number of characters in a generated id.
const Length = 21

// NanoID generates URL-safe 21 character ids.
type NanoID struct {
	next func() string
}

// NewNanoID creates a NanoID generator.
func NewNanoID() (*NanoID, error) {
	next, err := gonanoid.Standard(Length)
	if err != nil {
		return nil, fmt.Errorf("create nanoid generator: %w", err)
	}
	return &NanoID{next: next}, nil
}

// NewID returns a fresh id.
func (g *NanoID) NewID() string {
	return g.next()
}

// IsValid reports whether id has the shape of a generated id.
func IsValid(id string) bool {
	if len(id) != Length {
		return false
	}
	for _, c := range id {
		if !isAlphabet(c) {
			return false
		}
	}
	return true
}

func isAlphabet(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_' || c == '-'
}
