package doublepir

// ContractParams configures representing one large value as Delta elements
// mod Modulus, each mapped into the centered range [-Modulus/2, Modulus/2]
// (spec §4.F "contract/expand", invariant: contract(expand(m)) == m).
type ContractParams struct {
	Modulus uint32
	Delta   int
}

// centeredToRaw maps a centered value (given as a uint32 two's-complement
// encoding of a signed value) back into [0, modulus).
func centeredToRaw(val uint32, modulus uint32) uint32 {
	return (val + modulus/2) % modulus
}

// rawToCentered maps a raw value in [0, modulus) to a centered
// representation (two's-complement encoded) in [-modulus/2, modulus/2].
func rawToCentered(val, modulus uint32) uint32 {
	return val - modulus/2
}

// reconstructFromBaseP recombines a base-p digit sequence (least-significant
// digit first) into a single integer.
func reconstructFromBaseP(p uint64, vals []uint64) uint64 {
	var res, coeff uint64 = 0, 1
	for i, v := range vals {
		res += coeff * v
		if i < len(vals)-1 {
			coeff *= p
		}
	}
	return res
}

// baseP returns the i-th base-p digit of m.
func baseP(p, m uint64, i int) uint64 {
	for k := 0; k < i; k++ {
		m /= p
	}
	return m % p
}

// Expand splits each value into Delta centered digits base Modulus
// (least-significant digit first, matching reconstructFromBaseP's
// convention).
func (m *Matrix) Expand(cp ContractParams) *Matrix {
	out := NewMatrix(m.Rows*cp.Delta, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			val := m.At(i, j)
			for f := 0; f < cp.Delta; f++ {
				digit := val % cp.Modulus
				out.Set(i*cp.Delta+f, j, rawToCentered(digit, cp.Modulus))
				val /= cp.Modulus
			}
		}
	}
	return out
}

// Contract reassembles groups of Delta centered rows into one row of larger
// values mod Modulus^Delta.
func (m *Matrix) Contract(cp ContractParams) *Matrix {
	outRows := m.Rows / cp.Delta
	out := NewMatrix(outRows, m.Cols)
	for i := 0; i < outRows; i++ {
		for j := 0; j < m.Cols; j++ {
			vals := make([]uint64, cp.Delta)
			for f := 0; f < cp.Delta; f++ {
				vals[f] = uint64(centeredToRaw(m.At(i*cp.Delta+f, j), cp.Modulus))
			}
			out.Set(i, j, uint32(reconstructFromBaseP(uint64(cp.Modulus), vals)))
		}
	}
	return out
}
