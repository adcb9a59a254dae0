package spiralpir

import (
	"encoding/binary"
	"fmt"

	"github.com/blyss-go/pir/pirerr"
)

// Wire formats (spec §6): little-endian throughout except bit-packed
// payloads, which pack most-significant-first. Only the non-"a" rows of key
// material travel on the wire; "a" rows are regenerated from Seed.

func putUint64Slice(dst []byte, values []uint64) int {
	for i, v := range values {
		binary.LittleEndian.PutUint64(dst[i*8:], v)
	}
	return len(values) * 8
}

func getUint64Slice(src []byte, n int) ([]uint64, error) {
	if len(src) < n*8 {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", pirerr.ErrLengthMismatch, n*8, len(src))
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(src[i*8:])
	}
	return out, nil
}

// MarshalGadgetCiphertext writes only the "b" row(s) (row index 1..Rows-1)
// of a GadgetCiphertext's NTT-form data, since the "a" row regenerates from
// (Seed, StreamID).
func MarshalGadgetCiphertext(gc *GadgetCiphertext) []byte {
	d := gc.Data
	rowsToSend := d.Rows - 1
	buf := make([]byte, 8+rowsToSend*d.Cols*d.numWords()*8)
	binary.LittleEndian.PutUint64(buf, gc.StreamID)
	off := 8
	for r := 1; r < d.Rows; r++ {
		for c := 0; c < d.Cols; c++ {
			off += putUint64Slice(buf[off:], d.Poly(r, c))
		}
	}
	return buf
}

// UnmarshalGadgetCiphertext reconstructs a GadgetCiphertext by regenerating
// its "a" row from seed (stored negated, as encryptGadget does) and reading
// the transmitted "b" row(s) from data.
func UnmarshalGadgetCiphertext(p *Parameters, seed Seed, rows, cols int, data []byte) (*GadgetCiphertext, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: gadget ciphertext header", pirerr.ErrLengthMismatch)
	}
	streamID := binary.LittleEndian.Uint64(data)
	a, err := RandomNTTFromSeed(p, rows-1, cols, seed, streamID)
	if err != nil {
		return nil, err
	}

	out := ZeroNTT(p, rows, cols)
	out.CopyInto(a.Negate(), 0, 0)

	off := 8
	for r := 1; r < rows; r++ {
		for c := 0; c < cols; c++ {
			words, err := getUint64Slice(data[off:], out.numWords())
			if err != nil {
				return nil, err
			}
			copy(out.Poly(r, c), words)
			off += len(words) * 8
		}
	}
	return &GadgetCiphertext{Data: out, StreamID: streamID}, nil
}

// MarshalPublicParameters serializes the seed and every gadget ciphertext's
// transmitted rows, in a fixed field order (spec §6 "PublicParameters").
func MarshalPublicParameters(pp *PublicParameters) []byte {
	var out []byte
	out = append(out, pp.Seed[:]...)
	for _, gc := range pp.VPacking {
		out = append(out, lengthPrefixed(MarshalGadgetCiphertext(gc))...)
	}
	for _, gc := range pp.VExpansionLeft {
		out = append(out, lengthPrefixed(MarshalGadgetCiphertext(gc))...)
	}
	for _, gc := range pp.VExpansionRight {
		out = append(out, lengthPrefixed(MarshalGadgetCiphertext(gc))...)
	}
	out = append(out, lengthPrefixed(MarshalGadgetCiphertext(pp.VConversion))...)
	return out
}

func lengthPrefixed(b []byte) []byte {
	out := make([]byte, 4+len(b))
	binary.LittleEndian.PutUint32(out, uint32(len(b)))
	copy(out[4:], b)
	return out
}

// MarshalAnswer writes the bit-packed first row (Q2Bits per coefficient,
// packed most-significant-first) followed by the N bit-packed remaining
// rows (log2(Q1) bits per coefficient), per spec §6 "Answer".
func MarshalAnswer(p *Parameters, ans *Answer) []byte {
	var out []byte
	out = append(out, packBits(ans.FirstRow, p.Q2Bits)...)
	q1Bits := 0
	for (uint64(1) << uint(q1Bits)) < p.q1() {
		q1Bits++
	}
	for _, row := range ans.Rest {
		out = append(out, packBits(row, q1Bits)...)
	}
	return out
}
