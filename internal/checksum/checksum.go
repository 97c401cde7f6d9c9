// Package checksum fingerprints fetched documents so clients can tell
// whether the displayed content changed between two view snapshots.
package checksum

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the xxhash of text as 16 hex characters.
func Sum(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// Short returns the first 12 hex characters of Sum, enough for ETags and logs.
func Short(text string) string {
	return Sum(text)[:12]
}
