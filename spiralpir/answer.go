package spiralpir

import "math/big"

// Answer is the server's response: the packed (N+1) x 1 ciphertext after the
// two-stage modulus switch (spec §4.E.3 "modulus switch", §6 wire format).
// Row 0 (the "a" row) is switched down to Q2Bits bits; the remaining N rows
// are switched down to Q1 = 4*p.
type Answer struct {
	FirstRow []uint64 // PolyLen coefficients mod 2^Q2Bits
	Rest     [][]uint64 // N rows of PolyLen coefficients mod Q1
}

// q1 returns the second-stage switched modulus, 4*PtModulus (spec §4.E.4).
func (p *Parameters) q1() uint64 { return 4 * p.PtModulus }

// q2 returns the first-stage switched modulus, 2^Q2Bits.
func (p *Parameters) q2() uint64 { return uint64(1) << uint(p.Q2Bits) }

// switchModulus rescales a coefficient x in [0, p.Modulus) to [0, newMod) by
// rounding x*newMod/p.Modulus, the standard LWE modulus-switch.
func switchModulus(x, modulus, newMod uint64) uint64 {
	num := new(big.Int).Mul(big.NewInt(int64(x)), big.NewInt(int64(newMod)))
	num.Add(num, big.NewInt(int64(modulus/2)))
	num.Div(num, big.NewInt(int64(modulus)))
	return num.Uint64() % newMod
}

// ModulusSwitch converts the packed NTT-form ciphertext back to coefficient
// form and rescales row 0 to q2 and rows 1..N to q1 (spec §4.E.3 last step).
func (s *Server) ModulusSwitch(packed *PolyMatrixNTT) *Answer {
	p := s.Params
	raw := packed.FromNTT()

	ans := &Answer{
		FirstRow: make([]uint64, p.PolyLen),
		Rest:     make([][]uint64, p.N),
	}
	q2 := p.q2()
	q1 := p.q1()

	first := raw.Poly(0, 0)
	for z := 0; z < p.PolyLen; z++ {
		ans.FirstRow[z] = switchModulus(first[z], p.Modulus, q2)
	}
	for r := 0; r < p.N; r++ {
		row := raw.Poly(1+r, 0)
		out := make([]uint64, p.PolyLen)
		for z := 0; z < p.PolyLen; z++ {
			out[z] = switchModulus(row[z], p.Modulus, q1)
		}
		ans.Rest[r] = out
	}
	return ans
}

// Decode recovers the plaintext byte string from an Answer using the
// client's sk_reg (spec §4.E.4 "Client decoding"): for each coefficient it
// recombines the q2-scaled "a" contribution and the q1-scaled "b"
// contribution via r = first*q1 + rest*q2, rounds to the nearest multiple of
// q1*q2/p, and extracts the resulting Z_p digit.
func (c *Client) Decode(ans *Answer) []byte {
	p := c.Params
	q1 := p.q1()
	q2 := p.q2()

	skReg := c.SkReg.Poly(0, 0)

	num := make([]uint64, p.N*p.PolyLen)
	idx := 0
	for r := 0; r < p.N; r++ {
		for z := 0; z < p.PolyLen; z++ {
			as := negacyclicConvolveCoeff(skReg, ans.FirstRow, z, q2)
			combined := new(big.Int).Mul(big.NewInt(int64(ans.Rest[r][z])), big.NewInt(int64(q2)))
			asTerm := new(big.Int).Mul(big.NewInt(int64(as)), big.NewInt(int64(q1)))
			combined.Add(combined, asTerm)

			denom := new(big.Int).Mul(big.NewInt(int64(q1)), big.NewInt(int64(q2)))
			scaled := new(big.Int).Mul(combined, big.NewInt(int64(p.PtModulus)))
			scaled.Add(scaled, new(big.Int).Div(denom, big.NewInt(2)))
			scaled.Div(scaled, denom)

			num[idx] = scaled.Uint64() % p.PtModulus
			idx++
		}
	}

	bitsPerCoeff := 0
	for (uint64(1) << uint(bitsPerCoeff)) < p.PtModulus {
		bitsPerCoeff++
	}
	out := packBits(num, bitsPerCoeff)
	if len(out) > p.DbItemSize {
		out = out[:p.DbItemSize]
	}
	return out
}

// negacyclicConvolveCoeff returns coefficient z of sk(X) * a(X) in the
// negacyclic ring, reduced mod modulus, computed directly in coefficient
// form since the answer's "a" row already travelled in plain coefficient
// form after the modulus switch.
func negacyclicConvolveCoeff(sk, a []uint64, z int, modulus uint64) uint64 {
	n := len(a)
	var acc int64
	for i := 0; i < n; i++ {
		j := z - i
		sign := int64(1)
		if j < 0 {
			j += n
			sign = -1
		}
		acc += sign * int64(sk[i]%modulus) * int64(a[j]%modulus)
	}
	acc %= int64(modulus)
	if acc < 0 {
		acc += int64(modulus)
	}
	return uint64(acc)
}

// packBits packs values (each < 2^bitsPer) into a big-endian byte string,
// most-significant value first (spec §6 "chunked byte strings").
func packBits(values []uint64, bitsPer int) []byte {
	var acc uint64
	var accBits int
	out := make([]byte, 0, len(values)*bitsPer/8+1)
	for _, v := range values {
		acc = (acc << uint(bitsPer)) | (v & ((1 << uint(bitsPer)) - 1))
		accBits += bitsPer
		for accBits >= 8 {
			accBits -= 8
			out = append(out, byte(acc>>uint(accBits)))
		}
	}
	if accBits > 0 {
		out = append(out, byte(acc<<uint(8-accBits)))
	}
	return out
}
