package doublepir

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/blyss-go/pir/gaussian"
	"github.com/blyss-go/pir/pirerr"
)

// Matrix is a dense L x M (or similar) matrix of uint32 values reduced mod
// 2^32, the plain-LWE analogue of SpiralPIR's PolyMatrix (spec §3
// "DoublePIR state"). Values representing negative numbers use two's
// complement, matching the original's representation.
type Matrix struct {
	Rows, Cols int
	Data       []uint32
}

// NewMatrix allocates a zero-filled rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]uint32, rows*cols)}
}

// At returns the value at (row, col).
func (m *Matrix) At(row, col int) uint32 { return m.Data[row*m.Cols+col] }

// Set assigns the value at (row, col).
func (m *Matrix) Set(row, col int, v uint32) { m.Data[row*m.Cols+col] = v }

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := NewMatrix(m.Rows, m.Cols)
	copy(out.Data, m.Data)
	return out
}

// RandomMod fills a fresh matrix with uniform values in [0, modulus).
func RandomMod(rows, cols int, modulus uint32) (*Matrix, error) {
	out := NewMatrix(rows, cols)
	buf := make([]byte, 4)
	for i := range out.Data {
		for {
			if _, err := io.ReadFull(rand.Reader, buf); err != nil {
				return nil, err
			}
			v := binary.LittleEndian.Uint32(buf)
			// rejection sampling to avoid modulo bias
			limit := (uint32(0xFFFFFFFF) / modulus) * modulus
			if v < limit {
				out.Data[i] = v % modulus
				break
			}
		}
	}
	return out, nil
}

// RandomLogMod fills a fresh matrix with uniform values in [0, 2^logmod);
// for logmod >= 32 the range is [0, 2^32-1).
func RandomLogMod(rows, cols int, logmod uint) (*Matrix, error) {
	if logmod >= 32 {
		return RandomMod(rows, cols, 0xFFFFFFFF)
	}
	return RandomMod(rows, cols, uint32(1)<<logmod)
}

// Gaussian fills a fresh matrix with discrete-Gaussian noise (sigma
// matching the scheme's fixed LWE error width), two's-complement encoded
// (spec §4.F "LWE error distribution").
func Gaussian(rows, cols int, sampler *gaussian.Sampler) (*Matrix, error) {
	out := NewMatrix(rows, cols)
	for i := range out.Data {
		v, err := sampler.Sample(rand.Reader)
		if err != nil {
			return nil, err
		}
		out.Data[i] = uint32(int32(v))
	}
	return out, nil
}

// Add returns m + other entrywise, mod 2^32.
func (m *Matrix) Add(other *Matrix) (*Matrix, error) {
	if m.Rows != other.Rows || m.Cols != other.Cols {
		return nil, fmt.Errorf("%w: matrix add %dx%d vs %dx%d", pirerr.ErrLengthMismatch, m.Rows, m.Cols, other.Rows, other.Cols)
	}
	out := NewMatrix(m.Rows, m.Cols)
	for i := range out.Data {
		out.Data[i] = m.Data[i] + other.Data[i]
	}
	return out, nil
}

// AddScalar returns m + s entrywise.
func (m *Matrix) AddScalar(s uint32) *Matrix {
	out := NewMatrix(m.Rows, m.Cols)
	for i, v := range m.Data {
		out.Data[i] = v + s
	}
	return out
}

// Sub returns m - other entrywise, mod 2^32.
func (m *Matrix) Sub(other *Matrix) (*Matrix, error) {
	if m.Rows != other.Rows || m.Cols != other.Cols {
		return nil, fmt.Errorf("%w: matrix sub %dx%d vs %dx%d", pirerr.ErrLengthMismatch, m.Rows, m.Cols, other.Rows, other.Cols)
	}
	out := NewMatrix(m.Rows, m.Cols)
	for i := range out.Data {
		out.Data[i] = m.Data[i] - other.Data[i]
	}
	return out, nil
}

// Mul computes the ordinary matrix product m * other, mod 2^32. This is the
// scalar, portable rendition of the original's packed-SIMD kernel (spec
// §4.F.3 "packed-SIMD-style matrix multiply kernels"); see DESIGN.md for why
// no AVX2/cgo path is implemented.
func (m *Matrix) Mul(other *Matrix) (*Matrix, error) {
	if m.Cols != other.Rows {
		return nil, fmt.Errorf("%w: matrix mul %dx%d vs %dx%d", pirerr.ErrLengthMismatch, m.Rows, m.Cols, other.Rows, other.Cols)
	}
	out := NewMatrix(m.Rows, other.Cols)
	for i := 0; i < m.Rows; i++ {
		for k := 0; k < m.Cols; k++ {
			a := m.At(i, k)
			if a == 0 {
				continue
			}
			for j := 0; j < other.Cols; j++ {
				out.Data[i*out.Cols+j] += a * other.At(k, j)
			}
		}
	}
	return out, nil
}

// Transpose returns the transpose of m.
func (m *Matrix) Transpose() *Matrix {
	out := NewMatrix(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			out.Set(j, i, m.At(i, j))
		}
	}
	return out
}

// RowSlice returns a new matrix containing rows [start, start+count).
func (m *Matrix) RowSlice(start, count int) *Matrix {
	out := NewMatrix(count, m.Cols)
	copy(out.Data, m.Data[start*m.Cols:(start+count)*m.Cols])
	return out
}

// ConcatRows appends other's rows after m's rows (same column count).
func (m *Matrix) ConcatRows(other *Matrix) (*Matrix, error) {
	if m.Cols != other.Cols {
		return nil, fmt.Errorf("%w: concat rows %d vs %d cols", pirerr.ErrLengthMismatch, m.Cols, other.Cols)
	}
	out := NewMatrix(m.Rows+other.Rows, m.Cols)
	copy(out.Data, m.Data)
	copy(out.Data[len(m.Data):], other.Data)
	return out, nil
}

// ConcatCols reshapes an (r*k) x c matrix into r x (k*c) by concatenating
// groups of k consecutive rows side by side (spec §4.F "concat_cols", used
// after transpose+expand to reassemble the hint for the second LWE level).
func (m *Matrix) ConcatCols(k int) (*Matrix, error) {
	if m.Rows%k != 0 {
		return nil, fmt.Errorf("%w: concat_cols %d not divisible by %d", pirerr.ErrLengthMismatch, m.Rows, k)
	}
	outRows := m.Rows / k
	out := NewMatrix(outRows, m.Cols*k)
	for r := 0; r < outRows; r++ {
		for g := 0; g < k; g++ {
			srcRow := r*k + g
			copy(out.Data[r*out.Cols+g*m.Cols:r*out.Cols+(g+1)*m.Cols], m.Data[srcRow*m.Cols:(srcRow+1)*m.Cols])
		}
	}
	return out, nil
}

// Apply maps f over every entry, returning a new matrix.
func (m *Matrix) Apply(f func(uint32) uint32) *Matrix {
	out := NewMatrix(m.Rows, m.Cols)
	for i, v := range m.Data {
		out.Data[i] = f(v)
	}
	return out
}
