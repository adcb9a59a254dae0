package spiralpir

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20"
)

// Seed is the 32-byte value both client and server expand deterministically
// to regenerate the "a" rows of public key material and queries (spec §3,
// §4.E.1, §9 "Deterministic a rows via seed"). The cipher choice (ChaCha20)
// is fixed per scheme, matching the original's rand_chacha::ChaCha20Rng.
type Seed [32]byte

// NewSeed draws a fresh random seed from crypto/rand.
func NewSeed() (Seed, error) {
	var s Seed
	_, err := rand.Read(s[:])
	return s, err
}

// streamReader returns a byte stream deterministically derived from seed and
// streamID, used to regenerate one logical "a" component identically on
// both client and server.
func streamReader(seed Seed, streamID uint64) (*chacha20.Cipher, error) {
	var nonce [chacha20.NonceSize]byte
	for i := 0; i < 8 && i < len(nonce); i++ {
		nonce[i] = byte(streamID >> (8 * i))
	}
	return chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
}

// chachaUint64Reader adapts a *chacha20.Cipher (a keystream generator) into
// an io.Reader yielding that keystream, for use as a uniform byte source.
type chachaUint64Reader struct {
	c *chacha20.Cipher
}

func (r chachaUint64Reader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	r.c.XORKeyStream(p, p)
	return len(p), nil
}

// RandomNTTFromSeed deterministically regenerates a rows x cols NTT-form
// matrix uniform over each CRT lane's modulus, keyed by (seed, streamID).
// Both client and server call this identically so only the non-"a" rows of
// key material and queries need to travel on the wire (spec §6).
func RandomNTTFromSeed(p *Parameters, rows, cols int, seed Seed, streamID uint64) (*PolyMatrixNTT, error) {
	cipher, err := streamReader(seed, streamID)
	if err != nil {
		return nil, err
	}
	reader := chachaUint64Reader{c: cipher}

	out := ZeroNTT(p, rows, cols)
	buf := make([]byte, 8)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dst := out.Poly(r, c)
			for lane := 0; lane < p.CRTCount; lane++ {
				m := p.Moduli[lane]
				base := lane * p.PolyLen
				for z := 0; z < p.PolyLen; z++ {
					if _, err := reader.Read(buf); err != nil {
						return nil, err
					}
					v := uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 | uint64(buf[3])<<24 |
						uint64(buf[4])<<32 | uint64(buf[5])<<40 | uint64(buf[6])<<48 | uint64(buf[7])<<56
					dst[base+z] = v % m
				}
			}
		}
	}
	return out, nil
}
