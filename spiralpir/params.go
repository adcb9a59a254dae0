// Package spiralpir implements the SpiralPIR client/server: seeded key
// generation, coefficient expansion, Regev<->GSW conversion, first-dimension
// dot product, GSW folding, vector-Regev packing and client decoding
// (spec §4.E), built on the residue-number-system polynomial ring, NTT and
// poly-matrix algebra (spec §4.A-C) and the shared discrete Gaussian sampler
// (spec §4.D, package gaussian).
//
// Grounded on original_source/spiral-rs/src/{params,poly,ntt,client,server,
// gadget,discrete_gaussian}.rs, in the structural idiom of the teacher
// repository's rlwe.Parameters / rlwe.ParametersLiteral two-stage
// construction (literal -> validated immutable value).
package spiralpir

import (
	"fmt"
	"math/big"

	"github.com/blyss-go/pir/internal/numtheory"
	"github.com/blyss-go/pir/pirerr"
)

// ParametersLiteral is the serializable, user-facing description of a
// SpiralPIR parameter set. Call NewParameters to validate it into an
// immutable Parameters.
type ParametersLiteral struct {
	PolyLen       int
	Moduli        []uint64
	NoiseWidth    float64
	N             int // LWE-style dimension (sk_gsw is N x 1, sk_reg is 1 x 1)
	PtModulus     uint64
	Q2Bits        int
	TConv         int
	TExpLeft      int
	TExpRight     int
	TGsw          int
	ExpandQueries bool
	DbDim1        int // nu_1
	DbDim2        int // nu_2
	Instances     int
	DbItemSize    int // bytes
}

// Parameters is an immutable, fully-derived parameter set: moduli, NTT
// tables, Barrett constants and CRT recomposition coefficients are computed
// once at construction and shared (read-only) by every client/server object
// built from it, mirroring spec §3's "Barrett constants are derived once and
// cached" invariant.
type Parameters struct {
	ParametersLiteral

	PolyLenLog2 int
	CRTCount    int
	Modulus     uint64 // product of Moduli; fits uint64 for the supported parameter sets
	ModulusLog2 int

	NTTTables []*NTTTable

	barrettLo []uint64
	barrettHi []uint64

	// crtCompose[i] = (Modulus/Moduli[i]) * inverse(Modulus/Moduli[i] mod Moduli[i]) mod Modulus
	crtCompose []*big.Int

	G          int // coefficient-expansion tree depth, ceil(log2(2^DbDim1 + DbDim2*TGsw))
	StopRound  int // expansion round at which the right-stream switches in
	QScaleK    uint64
}

// MinQ2Bits is the minimum usable bit-width for the first-row modulus switch.
const MinQ2Bits = 14

// NewParameters validates lit and derives NTT tables, Barrett constants and
// CRT recomposition coefficients. Returns pirerr.ErrParameter if the moduli
// are not NTT-friendly for PolyLen, or if Q2Bits is below MinQ2Bits.
func NewParameters(lit ParametersLiteral) (*Parameters, error) {
	if lit.PolyLen <= 0 || lit.PolyLen&(lit.PolyLen-1) != 0 {
		return nil, fmt.Errorf("poly_len=%d must be a power of two: %w", lit.PolyLen, pirerr.ErrParameter)
	}
	if len(lit.Moduli) == 0 {
		return nil, fmt.Errorf("at least one modulus required: %w", pirerr.ErrParameter)
	}
	if lit.Q2Bits < MinQ2Bits {
		return nil, fmt.Errorf("q2_bits=%d below minimum %d: %w", lit.Q2Bits, MinQ2Bits, pirerr.ErrParameter)
	}

	p := &Parameters{ParametersLiteral: lit}
	p.PolyLenLog2 = log2(lit.PolyLen)
	p.CRTCount = len(lit.Moduli)

	modulus := new(big.Int).SetUint64(1)
	for _, m := range lit.Moduli {
		modulus.Mul(modulus, new(big.Int).SetUint64(m))
	}
	if !modulus.IsUint64() {
		return nil, fmt.Errorf("combined modulus exceeds 64 bits: %w", pirerr.ErrParameter)
	}
	p.Modulus = modulus.Uint64()
	p.ModulusLog2 = modulus.BitLen()

	p.NTTTables = make([]*NTTTable, p.CRTCount)
	p.barrettLo = make([]uint64, p.CRTCount)
	p.barrettHi = make([]uint64, p.CRTCount)
	for i, m := range lit.Moduli {
		table, ok := BuildNTTTable(lit.PolyLen, m)
		if !ok {
			return nil, fmt.Errorf("modulus %d has no primitive 2N-th root of unity for N=%d: %w", m, lit.PolyLen, pirerr.ErrParameter)
		}
		p.NTTTables[i] = table
		p.barrettLo[i], p.barrettHi[i] = numtheory.BarrettConstants(m)
	}

	p.crtCompose = make([]*big.Int, p.CRTCount)
	for i, mi := range lit.Moduli {
		qOverMi := new(big.Int).Quo(modulus, new(big.Int).SetUint64(mi))
		inv := new(big.Int).ModInverse(new(big.Int).Mod(qOverMi, new(big.Int).SetUint64(mi)), new(big.Int).SetUint64(mi))
		coeff := new(big.Int).Mul(qOverMi, inv)
		coeff.Mod(coeff, modulus)
		p.crtCompose[i] = coeff
	}

	// Expansion tree depth: enough leaves for the first dimension plus the
	// gadget-digit streams of every folding dimension (spec §4.E.2).
	leaves := (1 << lit.DbDim1) + lit.DbDim2*lit.TGsw
	p.G = log2ceil(leaves)
	p.StopRound = 0
	if lit.DbDim2 > 0 {
		p.StopRound = p.G - log2ceil(lit.DbDim2*lit.TGsw)
	}
	p.QScaleK = p.Modulus / lit.PtModulus

	return p, nil
}

func log2ceil(n int) int {
	if n <= 1 {
		return 0
	}
	l := 0
	v := 1
	for v < n {
		v <<= 1
		l++
	}
	return l
}
