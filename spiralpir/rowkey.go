package spiralpir

import (
	"crypto/sha256"
	"encoding/binary"
)

// RowFromKey maps an opaque lookup key (e.g. a state abbreviation) to a row
// index in [0, numItems) by hashing with SHA-256 and reducing the leading 8
// bytes of the digest mod numItems (spec §4 supplemented "row_from_key").
func RowFromKey(key string, numItems int) int {
	sum := sha256.Sum256([]byte(key))
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(numItems))
}
