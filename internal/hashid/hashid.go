// Package hashid computes the stable 63-bit URL identity hash used as the
// id of every Lookup (and so as a Task's url_id/back_url_id) and as a
// PageContent's content_hash.
package hashid

import (
	"golang.org/x/crypto/sha3"
)

// Null is the reserved identity for the null URL (crawl roots' back_url).
const Null uint64 = 1

// Of returns the 63-bit identity hash of url: the top 64 bits of the
// SHA3-256 digest of its UTF-8 bytes, shifted right by one bit. The shift
// reserves bit 63 so the result always fits a signed 64-bit column while
// remaining deterministic and stable across processes. Any change to this
// algorithm invalidates every previously persisted Lookup id.
func Of(url string) uint64 {
	digest := sha3.Sum256([]byte(url))

	var top uint64
	for i := 0; i < 8; i++ {
		top = top<<8 | uint64(digest[i])
	}

	return top >> 1
}

// OfNull returns the identity hash reserved for the null URL.
func OfNull() uint64 {
	return Null
}
