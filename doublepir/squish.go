package doublepir

import "fmt"

import "github.com/blyss-go/pir/pirerr"

// SquishParams configures in-memory database compression: Delta consecutive
// Basis-bit values are packed into one uint32 lane (spec §4.F "squish/
// unsquish", invariant: unsquish(squish(m)) == m for values already reduced
// mod 2^Basis).
type SquishParams struct {
	Basis uint
	Delta int
}

// DefaultSquishParams matches the scheme's fixed online-computation packing
// (10 bits x 3 values per lane, grounded on the original's SquishParams
// default()).
func DefaultSquishParams() SquishParams { return SquishParams{Basis: 10, Delta: 3} }

func (sp SquishParams) validate() error {
	if sp.Basis >= 32 || sp.Delta >= 32 || sp.Basis*uint(sp.Delta) > 32 {
		return fmt.Errorf("%w: invalid squish params basis=%d delta=%d", pirerr.ErrParameter, sp.Basis, sp.Delta)
	}
	return nil
}

// Squish packs Delta consecutive columns of basis-bit values into a single
// output column.
func (m *Matrix) Squish(sp SquishParams) (*Matrix, error) {
	if err := sp.validate(); err != nil {
		return nil, err
	}
	outCols := (m.Cols + sp.Delta - 1) / sp.Delta
	out := NewMatrix(m.Rows, outCols)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < outCols; j++ {
			var acc uint32
			for k := 0; k < sp.Delta; k++ {
				col := sp.Delta*j + k
				if col < m.Cols {
					acc += m.At(i, col) << (uint(k) * sp.Basis)
				}
			}
			out.Set(i, j, acc)
		}
	}
	return out, nil
}

// Unsquish reverses Squish, recovering origCols basis-bit values per row.
func (m *Matrix) Unsquish(sp SquishParams, origCols int) (*Matrix, error) {
	if err := sp.validate(); err != nil {
		return nil, err
	}
	if origCols > m.Cols*sp.Delta {
		return nil, fmt.Errorf("%w: unsquish origCols=%d exceeds capacity", pirerr.ErrParameter, origCols)
	}
	out := NewMatrix(m.Rows, origCols)
	mask := (uint32(1) << sp.Basis) - 1
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			for k := 0; k < sp.Delta; k++ {
				col := j*sp.Delta + k
				if col < origCols {
					out.Set(i, col, (m.At(i, j)>>(uint(k)*sp.Basis))&mask)
				}
			}
		}
	}
	return out, nil
}
