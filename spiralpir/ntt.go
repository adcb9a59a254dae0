package spiralpir

import (
	"math/big"
	"math/bits"

	"github.com/blyss-go/pir/internal/numtheory"
)

// NTTTable holds the forward/inverse root tables and their Shoup-scaled
// companions for one residue modulus, mirroring the teacher's
// ring.NTTTable (NthRoot, RootsForward, RootsBackward) generalized to the
// negacyclic (X^N+1) setting spec §4.B describes.
//
// RootsForward[i] / RootsInverse[i] are bit-reversed power tables of the
// primitive 2N-th root (resp. its inverse); the Scaled* companions are the
// Shoup constant floor(root*2^64/modulus) used to multiply without a full
// Montgomery reduction on the hot path.
type NTTTable struct {
	Modulus       uint64
	RootsForward  []uint64
	ScaledForward []uint64
	RootsInverse  []uint64
	ScaledInverse []uint64
	NInv          uint64
}

func bitReverse(x, logN int) int {
	r := 0
	for i := 0; i < logN; i++ {
		r = (r << 1) | (x & 1)
		x >>= 1
	}
	return r
}

func mulModBig(a, b, modulus uint64) uint64 {
	z := new(big.Int).SetUint64(a)
	z.Mul(z, new(big.Int).SetUint64(b))
	z.Mod(z, new(big.Int).SetUint64(modulus))
	return z.Uint64()
}

// scale returns floor(w*2^64/modulus), the Shoup companion of w.
func scale(w, modulus uint64) uint64 {
	q, _ := bits.Div64(w, 0, modulus)
	return q
}

// mulModShoup computes x*w mod modulus given w's Shoup companion wPrime,
// without a division on the hot path.
func mulModShoup(x, w, wPrime, modulus uint64) uint64 {
	hi, _ := bits.Mul64(wPrime, x)
	r := w*x - hi*modulus
	if r >= modulus {
		r -= modulus
	}
	return r
}

func buildRootTable(root, modulus uint64, logN int) []uint64 {
	n := 1 << logN
	table := make([]uint64, n)
	cur := uint64(1)
	for i := 0; i < n; i++ {
		table[bitReverse(i, logN)] = cur
		cur = mulModBig(cur, root, modulus)
	}
	return table
}

func scaleTable(table []uint64, modulus uint64) []uint64 {
	out := make([]uint64, len(table))
	for i, w := range table {
		out[i] = scale(w, modulus)
	}
	return out
}

// BuildNTTTable finds the minimal primitive 2*polyLen-th root of unity
// modulo modulus and precomputes its forward/inverse bit-reversed power
// tables. polyLen must be a power of two.
func BuildNTTTable(polyLen int, modulus uint64) (*NTTTable, bool) {
	logN := log2(polyLen)
	root, ok := numtheory.GetMinimalPrimitiveRoot(uint64(2*polyLen), modulus)
	if !ok {
		return nil, false
	}
	invRoot, ok := numtheory.InvertMod(root, modulus)
	if !ok {
		return nil, false
	}
	nInv, ok := numtheory.InvertMod(uint64(polyLen), modulus)
	if !ok {
		return nil, false
	}

	forward := buildRootTable(root, modulus, logN)
	inverse := buildRootTable(invRoot, modulus, logN)

	return &NTTTable{
		Modulus:       modulus,
		RootsForward:  forward,
		ScaledForward: scaleTable(forward, modulus),
		RootsInverse:  inverse,
		ScaledInverse: scaleTable(inverse, modulus),
		NInv:          nInv,
	}, true
}

func log2(n int) int {
	l := 0
	for 1<<l < n {
		l++
	}
	return l
}

// NTTForward applies the in-place negacyclic forward NTT (decimation in
// time, Cooley-Tukey butterflies) to a length-N buffer of coefficients
// already reduced modulo t.Modulus.
func (t *NTTTable) NTTForward(a []uint64) {
	n := len(a)
	modulus := t.Modulus
	tt := n
	for m := 1; m < n; m <<= 1 {
		tt >>= 1
		for i := 0; i < m; i++ {
			j1 := 2 * i * tt
			j2 := j1 + tt
			w := t.RootsForward[m+i]
			wp := t.ScaledForward[m+i]
			for j := j1; j < j2; j++ {
				u := a[j]
				v := mulModShoup(a[j+tt], w, wp, modulus)
				s := u + v
				if s >= modulus {
					s -= modulus
				}
				d := u + modulus - v
				if d >= modulus {
					d -= modulus
				}
				a[j] = s
				a[j+tt] = d
			}
		}
	}
}

// NTTInverse applies the in-place inverse negacyclic NTT (decimation in
// frequency, Gentleman-Sande butterflies), including the final N^-1 scaling.
func (t *NTTTable) NTTInverse(a []uint64) {
	n := len(a)
	modulus := t.Modulus
	tt := 1
	for m := n; m > 1; m >>= 1 {
		j1 := 0
		h := m >> 1
		for i := 0; i < h; i++ {
			j2 := j1 + tt
			w := t.RootsInverse[h+i]
			wp := t.ScaledInverse[h+i]
			for j := j1; j < j2; j++ {
				u := a[j]
				v := a[j+tt]
				s := u + v
				if s >= modulus {
					s -= modulus
				}
				d := u + modulus - v
				if d >= modulus {
					d -= modulus
				}
				a[j] = s
				a[j+tt] = mulModShoup(d, w, wp, modulus)
			}
			j1 += 2 * tt
		}
		tt <<= 1
	}
	nInvScaled := scale(t.NInv, modulus)
	for i := range a {
		a[i] = mulModShoup(a[i], t.NInv, nInvScaled, modulus)
	}
}
