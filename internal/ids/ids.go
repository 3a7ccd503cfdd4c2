// Package ids generates user identifiers. ULIDs are lexicographically
// sortable, so listing users by id roughly follows creation order and
// index pages stay dense.
package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a fresh identifier.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Valid reports whether s parses as an identifier produced by New.
// Handlers use it to reject obviously malformed path parameters before
// touching the directory.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
