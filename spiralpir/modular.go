package spiralpir

import "math/bits"

// barrettReduce reduces a 64-bit value x modulo modulus using the
// precomputed 128-bit Barrett constant k = floor(2^128/modulus) represented
// as (lo, hi), grounded on original_source/spiral-rs/src/arith.rs's
// barrett_coeff_u64 / barrett_raw_u128. At most two conditional
// subtractions are needed to land in [0, modulus).
func barrettReduce(x, modulus, lo, hi uint64) uint64 {
	hi1, lo1 := bits.Mul64(x, lo)
	hi2, lo2 := bits.Mul64(x, hi)
	_ = lo1
	mid, carry := bits.Add64(hi1, lo2, 0)
	_ = mid
	qHat := hi2 + carry

	r := x - qHat*modulus
	if r >= modulus {
		r -= modulus
	}
	if r >= modulus {
		r -= modulus
	}
	return r
}

// barrettCoeff reduces x modulo the lane-th residue prime.
func (p *Parameters) barrettCoeff(x uint64, lane int) uint64 {
	return barrettReduce(x, p.Moduli[lane], p.barrettLo[lane], p.barrettHi[lane])
}

func addMod(a, b, modulus uint64) uint64 {
	s := a + b
	if s >= modulus {
		s -= modulus
	}
	return s
}

func subMod(a, b, modulus uint64) uint64 {
	if a >= b {
		return a - b
	}
	return a + modulus - b
}
