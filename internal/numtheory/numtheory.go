// Package numtheory implements the modular-arithmetic primitives shared by
// the NTT and Barrett-reduction layers: modular exponentiation, modular
// inverse by extended GCD, primitive-root search, and the 128-bit Barrett
// reduction constants for a 64-bit modulus.
//
// Grounded on original_source/src/number_theory.rs and
// original_source/spiral-rs/src/arith.rs (get_barrett_crs, the 192-bit
// division SEAL port). The 192-bit division routines in the original exist
// only to compute floor(2^128/modulus); this package gets the same result
// from math/big, which is how the teacher's own utils/bignum package already
// leans on arbitrary-precision arithmetic rather than hand-rolled wide
// division.
package numtheory

import (
	"math/big"
	"math/rand/v2"
)

// attemptMax bounds the number of random trials in GetPrimitiveRoot before
// giving up.
const attemptMax = 100

// ExponentiateMod computes base^exp mod modulus via square-and-multiply.
func ExponentiateMod(base, exp, modulus uint64) uint64 {
	if modulus == 1 {
		return 0
	}
	result := uint64(1)
	b := new(big.Int).SetUint64(base)
	m := new(big.Int).SetUint64(modulus)
	b.Mod(b, m)
	e := exp
	acc := new(big.Int).SetUint64(1)
	for e > 0 {
		if e&1 == 1 {
			acc.Mul(acc, b)
			acc.Mod(acc, m)
		}
		b.Mul(b, b)
		b.Mod(b, m)
		e >>= 1
	}
	result = acc.Uint64()
	return result
}

// IsPrimitiveRoot reports whether root is a primitive degree-th root of
// unity modulo modulus, i.e. root^(degree/2) == modulus-1.
func IsPrimitiveRoot(root, degree, modulus uint64) bool {
	if root == 0 {
		return false
	}
	return ExponentiateMod(root, degree>>1, modulus) == modulus-1
}

// GetPrimitiveRoot searches for a primitive degree-th root of unity modulo
// modulus by sampling random group elements and raising them to the
// quotient-group order, retrying up to attemptMax times. Returns (0, false)
// if no root is found, mirroring the original's distinguished None result.
func GetPrimitiveRoot(degree, modulus uint64) (uint64, bool) {
	if modulus <= 1 || degree < 2 {
		return 0, false
	}
	sizeEntireGroup := modulus - 1
	sizeQuotientGroup := sizeEntireGroup / degree
	if sizeEntireGroup-sizeQuotientGroup*degree != 0 {
		return 0, false
	}

	var root uint64
	for trial := 0; trial < attemptMax; trial++ {
		r1 := rand.Uint64()
		r2 := rand.Uint64()
		r3 := ((r1 << 32) | r2) % modulus
		root = ExponentiateMod(r3, sizeQuotientGroup, modulus)
		if IsPrimitiveRoot(root, degree, modulus) {
			return root, true
		}
	}
	return 0, false
}

// GetMinimalPrimitiveRoot walks the cyclic subgroup generated by a primitive
// root to find the numerically smallest generator.
func GetMinimalPrimitiveRoot(degree, modulus uint64) (uint64, bool) {
	root, ok := GetPrimitiveRoot(degree, modulus)
	if !ok {
		return 0, false
	}

	generatorSq := new(big.Int).SetUint64(root)
	generatorSq.Mul(generatorSq, generatorSq)
	generatorSq.Mod(generatorSq, new(big.Int).SetUint64(modulus))
	gSq := generatorSq.Uint64()

	currentGenerator := root
	for i := uint64(0); i < degree; i++ {
		if currentGenerator < root {
			root = currentGenerator
		}
		currentGenerator = mulMod(currentGenerator, gSq, modulus)
	}
	return root, true
}

func mulMod(a, b, modulus uint64) uint64 {
	x := new(big.Int).SetUint64(a)
	x.Mul(x, new(big.Int).SetUint64(b))
	x.Mod(x, new(big.Int).SetUint64(modulus))
	return x.Uint64()
}

// ExtendedGCD returns (gcd, x, y) such that a*x + b*y = gcd(a, b).
func ExtendedGCD(a, b uint64) (uint64, int64, int64) {
	x := new(big.Int).SetUint64(a)
	y := new(big.Int).SetUint64(b)
	gcd := new(big.Int)
	s := new(big.Int)
	t := new(big.Int)
	gcd.GCD(s, t, x, y)
	return gcd.Uint64(), s.Int64(), t.Int64()
}

// InvertMod returns the modular inverse of value mod modulus, and false if
// value is 0 or not invertible.
func InvertMod(value, modulus uint64) (uint64, bool) {
	if value == 0 {
		return 0, false
	}
	gcd, x, _ := ExtendedGCD(value, modulus)
	if gcd != 1 {
		return 0, false
	}
	if x < 0 {
		return uint64(x + int64(modulus)), true
	}
	return uint64(x), true
}

// BarrettConstants returns the two 64-bit words (lo, hi) of
// floor(2^128 / modulus), the constant used for wide Barrett reduction of a
// 128-bit product modulo a 64-bit modulus.
func BarrettConstants(modulus uint64) (lo, hi uint64) {
	numerator := new(big.Int).Lsh(big.NewInt(1), 128)
	q := new(big.Int).Quo(numerator, new(big.Int).SetUint64(modulus))
	mask := new(big.Int).SetUint64(^uint64(0))
	loBig := new(big.Int).And(q, mask)
	hiBig := new(big.Int).Rsh(q, 64)
	return loBig.Uint64(), hiBig.Uint64()
}
