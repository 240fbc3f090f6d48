package store

import (
	"errors"
	"fmt"
)

// ErrVersionConflict means the row changed since the client read it.
var ErrVersionConflict = errors.New("row was modified by someone else")

// VersionOf returns the row's version token, its last-modified timestamp.
func VersionOf(row Row) string {
	return row[VersionColumn]
}

// CheckVersion compares the version the client saw with the current row.
// An empty expected version skips the check.
//
// This is a weak guarantee: the store has no compare-and-swap, so a write
// landing between the check and the update is not detected.
func CheckVersion(current Row, expected string) error {
	if expected == "" {
		return nil
	}
	if got := VersionOf(current); got != expected {
		return fmt.Errorf("%w: expected version %q, current %q", ErrVersionConflict, expected, got)
	}
	return nil
}
