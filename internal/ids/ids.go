// Package ids generates lexicographically sortable row identifiers.
package ids

import "github.com/oklog/ulid/v2"

// New returns a fresh ULID string. ULIDs sort by creation time, which keeps
// index pages warm for append-heavy tables.
func New() string {
	return ulid.Make().String()
}
