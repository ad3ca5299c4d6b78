package model

import "github.com/oklog/ulid/v2"

// NewID returns a new lexically sortable 26-char identifier.
func NewID() string {
	return ulid.Make().String()
}

// IsValidID reports whether s parses as an identifier produced by NewID.
func IsValidID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
