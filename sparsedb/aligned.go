// Package sparsedb implements a row-granular, memory-mapped backing store
// for PIR server databases (spec §4.G "Sparse DB & aligned storage"): each
// row lives in its own file named by decimal row index, memory-mapped on
// first access and reference-counted thereafter. No other package in this
// module imports it.
package sparsedb

// alignment is the byte boundary every mapped row buffer is padded to,
// matching spec §4.G's "32-byte-aligned buffers" (wide enough for any SIMD
// width a future optimized kernel might reach for, without committing to
// one here).
const alignment = 32

// alignedSize rounds n up to the next multiple of alignment.
func alignedSize(n int) int {
	rem := n % alignment
	if rem == 0 {
		return n
	}
	return n + (alignment - rem)
}

// padToAligned returns data, zero-padded up to alignedSize(len(data)).
func padToAligned(data []byte) []byte {
	size := alignedSize(len(data))
	if size == len(data) {
		return data
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}
