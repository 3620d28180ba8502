package model

import "github.com/oklog/ulid/v2"

// NewID returns a new ULID string. Job IDs sort by creation time.
func NewID() string {
	return ulid.Make().String()
}

// ValidID reports whether id is a well-formed ULID.
func ValidID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}
