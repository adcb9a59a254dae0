package doublepir

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
)

// DeriveSeed is the 16-byte AES-128 key used to deterministically regenerate
// DoublePIR's public A matrices (spec §3 "DoublePIR state", §9 "deterministic
// a rows via stream cipher"). AES is the one deliberate stdlib exception in
// this module (see DESIGN.md): the original derives these matrices with
// AES-128-CTR specifically (not ChaCha20, which SpiralPIR uses), so this
// keeps the scheme's actual cipher choice rather than substituting a
// different stream cipher for uniformity.
type DeriveSeed [16]byte

// chunkSize matches the original's 64KiB keystream-chunking, where each
// chunk gets its own big-endian counter in the low 8 bytes of the IV.
const chunkSize = 65536

// deriveWithAES fills out with AES-128-CTR keystream bytes, chunked exactly
// as original_source/lib/doublepir/src/matrix/derivation.rs does, so that
// bit-for-bit fixed test vectors at chunk boundaries remain meaningful.
func deriveWithAES(key DeriveSeed, out []byte) error {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return err
	}
	for i := 0; i*chunkSize < len(out); i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(out) {
			end = len(out)
		}
		var iv [16]byte
		binary.BigEndian.PutUint64(iv[0:8], uint64(i))
		stream := cipher.NewCTR(block, iv[:])
		stream.XORKeyStream(out[start:end], out[start:end])
	}
	return nil
}

// DeriveMatrixFromSeed deterministically fills a rows x cols matrix with
// AES-128-CTR keystream bytes reinterpreted as little-endian uint32 words,
// used to regenerate the scheme's public A1/A2 matrices identically on
// client and server without transmitting them.
func DeriveMatrixFromSeed(rows, cols int, seed DeriveSeed) (*Matrix, error) {
	raw := make([]byte, rows*cols*4)
	if err := deriveWithAES(seed, raw); err != nil {
		return nil, err
	}
	out := NewMatrix(rows, cols)
	for i := range out.Data {
		out.Data[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return out, nil
}

// SeedA1 and SeedA2 are the fixed public derivation seeds for the scheme's
// two shared matrices (spec §4.F.1 "Init"), analogous to SpiralPIR's
// per-stream ChaCha20 identifiers but fixed rather than per-call since both
// matrices are generated exactly once per parameter set.
var (
	SeedA1 = DeriveSeed{0x01}
	SeedA2 = DeriveSeed{0x02}
)
